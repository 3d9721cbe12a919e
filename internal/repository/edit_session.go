package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quickassist/collab-server-go/internal/model"
)

type EditSessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.EditSession, error)
	FindByParticipant(ctx context.Context, participantID string) ([]model.EditSession, error)
	Create(ctx context.Context, params model.CreateEditSessionParams) (*model.EditSession, error)
	UpdateContent(ctx context.Context, id, codeContent, language string) error
}

type editSessionRepo struct {
	db *sqlx.DB
}

func NewEditSessionRepository(db *sqlx.DB) EditSessionRepository {
	return &editSessionRepo{db: db}
}

func (r *editSessionRepo) FindByID(ctx context.Context, id string) (*model.EditSession, error) {
	var session model.EditSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM edit_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *editSessionRepo) FindByParticipant(ctx context.Context, participantID string) ([]model.EditSession, error) {
	var sessions []model.EditSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM edit_sessions
		WHERE participant_id = $1
		ORDER BY updated_at DESC
	`, participantID)
	return sessions, err
}

func (r *editSessionRepo) Create(ctx context.Context, params model.CreateEditSessionParams) (*model.EditSession, error) {
	var session model.EditSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO edit_sessions (id, participant_id, title, language, code_content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, uuid.NewString(), params.ParticipantID, params.Title, params.Language, params.CodeContent)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *editSessionRepo) UpdateContent(ctx context.Context, id, codeContent, language string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE edit_sessions SET
			code_content = $2,
			language = $3,
			updated_at = NOW()
		WHERE id = $1
	`, id, codeContent, language)
	return err
}
