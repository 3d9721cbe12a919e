package editsession

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/model"
)

type mockEditSessionRepo struct {
	mock.Mock
}

func (m *mockEditSessionRepo) FindByID(ctx context.Context, id string) (*model.EditSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EditSession), args.Error(1)
}

func (m *mockEditSessionRepo) FindByParticipant(ctx context.Context, participantID string) ([]model.EditSession, error) {
	args := m.Called(ctx, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EditSession), args.Error(1)
}

func (m *mockEditSessionRepo) Create(ctx context.Context, params model.CreateEditSessionParams) (*model.EditSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EditSession), args.Error(1)
}

func (m *mockEditSessionRepo) UpdateContent(ctx context.Context, id, codeContent, language string) error {
	args := m.Called(ctx, id, codeContent, language)
	return args.Error(0)
}

type mockMetricRepo struct {
	mock.Mock
}

func (m *mockMetricRepo) Upsert(ctx context.Context, date time.Time, language string, suggestionDelta, sessionDelta int) error {
	args := m.Called(ctx, date, language, suggestionDelta, sessionDelta)
	return args.Error(0)
}

func (m *mockMetricRepo) FindByDate(ctx context.Context, date time.Time) ([]model.UsageMetric, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UsageMetric), args.Error(1)
}

func TestCreate(t *testing.T) {
	t.Run("applies defaults and counts the session", func(t *testing.T) {
		repo := new(mockEditSessionRepo)
		metrics := new(mockMetricRepo)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateEditSessionParams) bool {
			return p.Language == "javascript" && p.Title == "Untitled"
		})).Return(&model.EditSession{ID: "session-1", Language: "javascript"}, nil)
		metrics.On("Upsert", mock.Anything, mock.Anything, "javascript", 0, 1).Return(nil)

		svc := NewService(repo, metrics)
		session, err := svc.Create(context.Background(), model.CreateEditSessionParams{ParticipantID: "participant-1"})

		require.NoError(t, err)
		assert.Equal(t, "session-1", session.ID)
		repo.AssertExpectations(t)
		metrics.AssertExpectations(t)
	})

	t.Run("requires a participant id", func(t *testing.T) {
		svc := NewService(new(mockEditSessionRepo), nil)

		_, err := svc.Create(context.Background(), model.CreateEditSessionParams{})
		assert.Equal(t, apperr.ErrCodeMissingRequired, apperr.GetCode(err))
	})

	t.Run("metric failure does not fail the create", func(t *testing.T) {
		repo := new(mockEditSessionRepo)
		metrics := new(mockMetricRepo)
		repo.On("Create", mock.Anything, mock.Anything).Return(&model.EditSession{ID: "session-1", Language: "python"}, nil)
		metrics.On("Upsert", mock.Anything, mock.Anything, "python", 0, 1).Return(errors.New("db down"))

		svc := NewService(repo, metrics)
		_, err := svc.Create(context.Background(), model.CreateEditSessionParams{ParticipantID: "participant-1", Language: "python"})

		require.NoError(t, err)
	})

	t.Run("store failure surfaces as persistence error", func(t *testing.T) {
		repo := new(mockEditSessionRepo)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		svc := NewService(repo, nil)
		_, err := svc.Create(context.Background(), model.CreateEditSessionParams{ParticipantID: "participant-1"})

		assert.Equal(t, apperr.ErrCodePersistence, apperr.GetCode(err))
	})
}

func TestGet(t *testing.T) {
	t.Run("returns the session", func(t *testing.T) {
		repo := new(mockEditSessionRepo)
		repo.On("FindByID", mock.Anything, "session-1").Return(&model.EditSession{ID: "session-1"}, nil)

		svc := NewService(repo, nil)
		session, err := svc.Get(context.Background(), "session-1")

		require.NoError(t, err)
		assert.Equal(t, "session-1", session.ID)
	})

	t.Run("missing session maps to not found", func(t *testing.T) {
		repo := new(mockEditSessionRepo)
		repo.On("FindByID", mock.Anything, "missing").Return(nil, nil)

		svc := NewService(repo, nil)
		_, err := svc.Get(context.Background(), "missing")

		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestUpdateContent(t *testing.T) {
	t.Run("defaults the language", func(t *testing.T) {
		repo := new(mockEditSessionRepo)
		repo.On("UpdateContent", mock.Anything, "session-1", "let x = 1;", "javascript").Return(nil)

		svc := NewService(repo, nil)
		require.NoError(t, svc.UpdateContent(context.Background(), "session-1", "let x = 1;", ""))
		repo.AssertExpectations(t)
	})
}
