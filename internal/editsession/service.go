// Package editsession manages the underlying editor sessions that
// collaboration shares: the buffer, its language, and who owns it.
package editsession

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/model"
	"github.com/quickassist/collab-server-go/internal/repository"
)

const defaultLanguage = "javascript"

type Service struct {
	sessions repository.EditSessionRepository
	metrics  repository.UsageMetricRepository
}

func NewService(sessions repository.EditSessionRepository, metrics repository.UsageMetricRepository) *Service {
	return &Service{
		sessions: sessions,
		metrics:  metrics,
	}
}

func (s *Service) Create(ctx context.Context, params model.CreateEditSessionParams) (*model.EditSession, error) {
	if params.ParticipantID == "" {
		return nil, apperr.MissingRequired("participantId")
	}
	if params.Language == "" {
		params.Language = defaultLanguage
	}
	if params.Title == "" {
		params.Title = "Untitled"
	}

	session, err := s.sessions.Create(ctx, params)
	if err != nil {
		return nil, apperr.Persistence(err)
	}

	if s.metrics != nil {
		if err := s.metrics.Upsert(ctx, time.Now().UTC().Truncate(24*time.Hour), session.Language, 0, 1); err != nil {
			log.Warn().Err(err).Msg("Failed to upsert session metric")
		}
	}

	log.Info().Str("sessionId", session.ID).Str("language", session.Language).Msg("Edit session created")
	return session, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.EditSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if session == nil {
		return nil, apperr.NotFound("Edit session")
	}
	return session, nil
}

func (s *Service) ListByParticipant(ctx context.Context, participantID string) ([]model.EditSession, error) {
	sessions, err := s.sessions.FindByParticipant(ctx, participantID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return sessions, nil
}

// UpdateContent saves the latest buffer state. The editor shell calls
// this on the same debounce cadence as sync publishes.
func (s *Service) UpdateContent(ctx context.Context, id, codeContent, language string) error {
	if language == "" {
		language = defaultLanguage
	}
	if err := s.sessions.UpdateContent(ctx, id, codeContent, language); err != nil {
		return apperr.Persistence(err)
	}
	return nil
}
