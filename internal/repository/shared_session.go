package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quickassist/collab-server-go/internal/model"
)

type SharedSessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.SharedSession, error)
	FindActiveByCode(ctx context.Context, code string) (*model.SharedSession, error)
	Create(ctx context.Context, params model.CreateSharedSessionParams) (*model.SharedSession, error)
	AssignGuest(ctx context.Context, code string, guestParticipantID string) (*model.SharedSession, error)
	Deactivate(ctx context.Context, id string, hostParticipantID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type sharedSessionRepo struct {
	db *sqlx.DB
}

func NewSharedSessionRepository(db *sqlx.DB) SharedSessionRepository {
	return &sharedSessionRepo{db: db}
}

func (r *sharedSessionRepo) FindByID(ctx context.Context, id string) (*model.SharedSession, error) {
	var session model.SharedSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM shared_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

// FindActiveByCode filters on expires_at: the 24h TTL is a logical
// invariant enforced on every read, not only by the cleanup job.
func (r *sharedSessionRepo) FindActiveByCode(ctx context.Context, code string) (*model.SharedSession, error) {
	var session model.SharedSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM shared_sessions
		WHERE share_code = $1 AND active AND expires_at > NOW()
	`, code)
	return HandleNotFound(&session, err)
}

func (r *sharedSessionRepo) Create(ctx context.Context, params model.CreateSharedSessionParams) (*model.SharedSession, error) {
	var session model.SharedSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO shared_sessions
			(id, owner_session_id, share_code, host_participant_id, permission, active, expires_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		RETURNING *
	`, uuid.NewString(), params.OwnerSessionID, params.ShareCode,
		params.HostParticipantID, params.Permission, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// AssignGuest is the atomic check-then-set for the guest slot:
// first join wins, a rejoin by the same guest is idempotent, and any
// other contender sees no row.
func (r *sharedSessionRepo) AssignGuest(ctx context.Context, code string, guestParticipantID string) (*model.SharedSession, error) {
	var session model.SharedSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE shared_sessions SET
			guest_participant_id = $2,
			connected_at = COALESCE(connected_at, NOW())
		WHERE share_code = $1
		AND active
		AND expires_at > NOW()
		AND (guest_participant_id IS NULL OR guest_participant_id = $2)
		RETURNING *
	`, code, guestParticipantID)
	return HandleNotFound(&session, err)
}

// Deactivate ends a session, but only for its host. A guest-issued end
// matches no row and reports zero: guests cannot terminate a host's
// session, by policy.
func (r *sharedSessionRepo) Deactivate(ctx context.Context, id string, hostParticipantID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE shared_sessions SET active = FALSE
		WHERE id = $1 AND host_participant_id = $2 AND active
	`, id, hostParticipantID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sharedSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM shared_sessions
		WHERE expires_at < NOW() OR NOT active
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
