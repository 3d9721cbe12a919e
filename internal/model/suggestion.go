package model

import "time"

// SuggestionEvent records one round-trip to the suggestion backend,
// including substituted fallback responses.
type SuggestionEvent struct {
	ID            string         `db:"id" json:"id"`
	EditSessionID *string        `db:"edit_session_id" json:"editSessionId,omitempty"`
	ParticipantID string         `db:"participant_id" json:"participantId"`
	Kind          SuggestionKind `db:"kind" json:"kind"`
	Language      string         `db:"language" json:"language"`
	Fallback      bool           `db:"fallback" json:"fallback"`
	IssueDetected bool           `db:"issue_detected" json:"issueDetected"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

type CreateSuggestionEventParams struct {
	EditSessionID *string
	ParticipantID string
	Kind          SuggestionKind
	Language      string
	Fallback      bool
	IssueDetected bool
}
