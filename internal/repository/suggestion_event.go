package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quickassist/collab-server-go/internal/model"
)

type SuggestionEventRepository interface {
	Create(ctx context.Context, params model.CreateSuggestionEventParams) (*model.SuggestionEvent, error)
	FindRecentByParticipant(ctx context.Context, participantID string, limit int) ([]model.SuggestionEvent, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type suggestionEventRepo struct {
	db *sqlx.DB
}

func NewSuggestionEventRepository(db *sqlx.DB) SuggestionEventRepository {
	return &suggestionEventRepo{db: db}
}

func (r *suggestionEventRepo) Create(ctx context.Context, params model.CreateSuggestionEventParams) (*model.SuggestionEvent, error) {
	var event model.SuggestionEvent
	err := r.db.GetContext(ctx, &event, `
		INSERT INTO suggestion_events
			(id, edit_session_id, participant_id, kind, language, fallback, issue_detected)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, uuid.NewString(), params.EditSessionID, params.ParticipantID,
		params.Kind, params.Language, params.Fallback, params.IssueDetected)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *suggestionEventRepo) FindRecentByParticipant(ctx context.Context, participantID string, limit int) ([]model.SuggestionEvent, error) {
	var events []model.SuggestionEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM suggestion_events
		WHERE participant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, participantID, limit)
	return events, err
}

func (r *suggestionEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM suggestion_events WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
