package model

import "time"

// UsageMetric is the per-day, per-language aggregate. Upserts key on the
// (metric_date, language) composite.
type UsageMetric struct {
	ID              string    `db:"id" json:"id"`
	MetricDate      time.Time `db:"metric_date" json:"metricDate"`
	Language        string    `db:"language" json:"language"`
	SuggestionCount int       `db:"suggestion_count" json:"suggestionCount"`
	SessionCount    int       `db:"session_count" json:"sessionCount"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}
