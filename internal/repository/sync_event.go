package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/quickassist/collab-server-go/internal/model"
)

type SyncEventRepository interface {
	Append(ctx context.Context, evt model.SyncEvent) error
	ListAfter(ctx context.Context, sharedSessionID, afterID, excludeOrigin string) ([]model.SyncEvent, error)
	TrimOld(ctx context.Context, keep int) (int64, error)
	DeleteForSession(ctx context.Context, sharedSessionID string) (int64, error)
	DeleteOrphaned(ctx context.Context) (int64, error)
}

type syncEventRepo struct {
	db *sqlx.DB
}

func NewSyncEventRepository(db *sqlx.DB) SyncEventRepository {
	return &syncEventRepo{db: db}
}

func (r *syncEventRepo) Append(ctx context.Context, evt model.SyncEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_events
			(id, shared_session_id, origin_participant_id, kind, code_content, language, line, col, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, evt.ID, evt.SharedSessionID, evt.OriginParticipantID, evt.Kind,
		evt.CodeContent, evt.Language, evt.Line, evt.Column, evt.CreatedAt)
	return err
}

// ListAfter returns events newer than afterID in id order, excluding
// self-originated ones. Used by late subscribers to catch up.
func (r *syncEventRepo) ListAfter(ctx context.Context, sharedSessionID, afterID, excludeOrigin string) ([]model.SyncEvent, error) {
	var events []model.SyncEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM sync_events
		WHERE shared_session_id = $1
		AND id > $2
		AND origin_participant_id != $3
		ORDER BY id ASC
	`, sharedSessionID, afterID, excludeOrigin)
	return events, err
}

// TrimOld keeps only the most recent `keep` events per session. Older
// events are superseded by whole-buffer replacement.
func (r *syncEventRepo) TrimOld(ctx context.Context, keep int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sync_events WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY shared_session_id ORDER BY id DESC
				) AS rn
				FROM sync_events
			) ranked
			WHERE ranked.rn > $1
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *syncEventRepo) DeleteForSession(ctx context.Context, sharedSessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sync_events WHERE shared_session_id = $1
	`, sharedSessionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *syncEventRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sync_events WHERE shared_session_id NOT IN (
			SELECT id FROM shared_sessions WHERE active AND expires_at > NOW()
		)
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
