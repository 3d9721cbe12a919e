package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quickassist/collab-server-go/internal/model"
)

type UsageMetricRepository interface {
	Upsert(ctx context.Context, date time.Time, language string, suggestionDelta, sessionDelta int) error
	FindByDate(ctx context.Context, date time.Time) ([]model.UsageMetric, error)
}

type usageMetricRepo struct {
	db *sqlx.DB
}

func NewUsageMetricRepository(db *sqlx.DB) UsageMetricRepository {
	return &usageMetricRepo{db: db}
}

// Upsert increments the daily aggregate keyed on (metric_date, language).
func (r *usageMetricRepo) Upsert(ctx context.Context, date time.Time, language string, suggestionDelta, sessionDelta int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_metrics
			(id, metric_date, language, suggestion_count, session_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (metric_date, language) DO UPDATE SET
			suggestion_count = usage_metrics.suggestion_count + EXCLUDED.suggestion_count,
			session_count = usage_metrics.session_count + EXCLUDED.session_count,
			updated_at = NOW()
	`, uuid.NewString(), date.Format("2006-01-02"), language, suggestionDelta, sessionDelta)
	return err
}

func (r *usageMetricRepo) FindByDate(ctx context.Context, date time.Time) ([]model.UsageMetric, error) {
	var metrics []model.UsageMetric
	err := r.db.SelectContext(ctx, &metrics, `
		SELECT * FROM usage_metrics
		WHERE metric_date = $1
		ORDER BY language ASC
	`, date.Format("2006-01-02"))
	return metrics, err
}
