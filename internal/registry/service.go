// Package registry owns SharedSession records: creating a session with a
// unique active share code, admitting a guest, and ending it.
package registry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/config"
	"github.com/quickassist/collab-server-go/internal/model"
	"github.com/quickassist/collab-server-go/internal/repository"
	"github.com/quickassist/collab-server-go/internal/sharecode"
	"github.com/quickassist/collab-server-go/internal/util"
)

const maxCodeAttempts = 10

// Registry is the session-establishment surface consumed by the
// orchestrator: implemented by Service against the database and by
// Client against a remote server.
type Registry interface {
	Create(ctx context.Context, ownerSessionID, hostParticipantID string, permission model.Permission) (*model.SharedSession, error)
	Join(ctx context.Context, code, guestParticipantID string) (*model.SharedSession, error)
	End(ctx context.Context, sessionID, participantID string) error
}

type Service struct {
	repo   repository.SharedSessionRepository
	events repository.SyncEventRepository
}

// NewService builds the database-backed registry. events may be nil;
// when present, a session's event log is dropped as the session ends.
func NewService(repo repository.SharedSessionRepository, events repository.SyncEventRepository) *Service {
	return &Service{repo: repo, events: events}
}

// Create registers a new shared session with a fresh share code and a
// fixed 24h TTL. The generator alone does not guarantee uniqueness, so
// collisions against active codes are detected and retried here.
func (s *Service) Create(ctx context.Context, ownerSessionID, hostParticipantID string, permission model.Permission) (*model.SharedSession, error) {
	if !permission.Valid() {
		return nil, apperr.InvalidInput("permission", string(permission))
	}

	var code string
	for attempts := 0; attempts < maxCodeAttempts; attempts++ {
		code = sharecode.Generate()
		existing, err := s.repo.FindActiveByCode(ctx, code)
		if err != nil {
			return nil, apperr.Persistence(err)
		}
		if existing == nil {
			break
		}
	}

	session, err := s.repo.Create(ctx, model.CreateSharedSessionParams{
		OwnerSessionID:    ownerSessionID,
		ShareCode:         code,
		HostParticipantID: hostParticipantID,
		Permission:        permission,
		ExpiresAt:         time.Now().Add(config.SharedSessionTTL),
	})
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	log.Info().
		Str("sharedSessionId", session.ID).
		Str("shareCode", util.MaskCode(session.ShareCode)).
		Str("permission", string(permission)).
		Time("expiresAt", session.ExpiresAt).
		Msg("shared session created")

	return session, nil
}

// Join normalizes the code and atomically claims the guest slot. An
// unknown, expired, inactive, or already-claimed code all come back as
// NOT_FOUND: the caller shows "invalid or expired code" either way, and
// only a store failure is a connection problem.
func (s *Service) Join(ctx context.Context, code, guestParticipantID string) (*model.SharedSession, error) {
	normalized := sharecode.Normalize(code)
	if !sharecode.Valid(normalized) {
		return nil, apperr.InvalidShareCode()
	}

	session, err := s.repo.AssignGuest(ctx, normalized, guestParticipantID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if session == nil {
		log.Warn().Str("shareCode", util.MaskCode(normalized)).Msg("join rejected: invalid or expired share code")
		return nil, apperr.InvalidShareCode()
	}

	log.Info().
		Str("sharedSessionId", session.ID).
		Str("guestParticipantId", guestParticipantID).
		Msg("guest joined shared session")

	return session, nil
}

// End deactivates the session. Only the host's call has effect; a guest
// end request matches nothing and is a silent no-op, by policy.
func (s *Service) End(ctx context.Context, sessionID, participantID string) error {
	count, err := s.repo.Deactivate(ctx, sessionID, participantID)
	if err != nil {
		return apperr.Persistence(err)
	}
	if count == 0 {
		log.Debug().
			Str("sharedSessionId", sessionID).
			Str("participantId", participantID).
			Msg("end request ignored: not the host or already ended")
		return nil
	}

	if s.events != nil {
		// The log is owned by the channel and bounded anyway; dropping
		// it here just saves the cleanup job the work.
		if _, err := s.events.DeleteForSession(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("sharedSessionId", sessionID).Msg("failed to drop session event log")
		}
	}

	log.Info().Str("sharedSessionId", sessionID).Msg("shared session ended")
	return nil
}

var _ Registry = (*Service)(nil)
