package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickassist/collab-server-go/internal/model"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func sessionColumns() []string {
	return []string{
		"id", "owner_session_id", "share_code", "host_participant_id",
		"guest_participant_id", "permission", "active", "connected_at",
		"created_at", "expires_at",
	}
}

func sessionRow(guest *string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(sessionColumns()).AddRow(
		"sess-1", "owner-1", "AB3K9Q", "host-1",
		guest, "edit", true, nil,
		now, now.Add(24*time.Hour),
	)
}

func TestSharedSessionRepository_FindActiveByCode(t *testing.T) {
	t.Run("returns session for active code", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewSharedSessionRepository(db)

		mock.ExpectQuery(`SELECT \* FROM shared_sessions`).
			WithArgs("AB3K9Q").
			WillReturnRows(sessionRow(nil))

		session, err := repo.FindActiveByCode(context.Background(), "AB3K9Q")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "AB3K9Q", session.ShareCode)
		assert.Nil(t, session.GuestParticipantID)
	})

	t.Run("returns nil for unknown code", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewSharedSessionRepository(db)

		mock.ExpectQuery(`SELECT \* FROM shared_sessions`).
			WithArgs("XXXXXX").
			WillReturnRows(sqlmock.NewRows(sessionColumns()))

		session, err := repo.FindActiveByCode(context.Background(), "XXXXXX")
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("propagates store errors", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewSharedSessionRepository(db)

		mock.ExpectQuery(`SELECT \* FROM shared_sessions`).
			WithArgs("AB3K9Q").
			WillReturnError(errors.New("connection refused"))

		_, err := repo.FindActiveByCode(context.Background(), "AB3K9Q")
		assert.Error(t, err)
	})
}

func TestSharedSessionRepository_Create(t *testing.T) {
	t.Run("inserts and returns new session", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewSharedSessionRepository(db)

		mock.ExpectQuery(`INSERT INTO shared_sessions`).
			WillReturnRows(sessionRow(nil))

		session, err := repo.Create(context.Background(), model.CreateSharedSessionParams{
			OwnerSessionID:    "owner-1",
			ShareCode:         "AB3K9Q",
			HostParticipantID: "host-1",
			Permission:        model.PermissionEdit,
			ExpiresAt:         time.Now().Add(24 * time.Hour),
		})
		require.NoError(t, err)
		assert.True(t, session.Active)
		assert.Equal(t, model.PermissionEdit, session.Permission)
	})
}

func TestSharedSessionRepository_AssignGuest(t *testing.T) {
	t.Run("first join wins the guest slot", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewSharedSessionRepository(db)

		guest := "guest-1"
		mock.ExpectQuery(`UPDATE shared_sessions SET`).
			WithArgs("AB3K9Q", "guest-1").
			WillReturnRows(sessionRow(&guest))

		session, err := repo.AssignGuest(context.Background(), "AB3K9Q", "guest-1")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "guest-1", *session.GuestParticipantID)
	})

	t.Run("taken slot or expired code matches no row", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewSharedSessionRepository(db)

		mock.ExpectQuery(`UPDATE shared_sessions SET`).
			WithArgs("AB3K9Q", "guest-2").
			WillReturnRows(sqlmock.NewRows(sessionColumns()))

		session, err := repo.AssignGuest(context.Background(), "AB3K9Q", "guest-2")
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestSharedSessionRepository_Deactivate(t *testing.T) {
	t.Run("host end deactivates", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewSharedSessionRepository(db)

		mock.ExpectExec(`UPDATE shared_sessions SET active = FALSE`).
			WithArgs("sess-1", "host-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		count, err := repo.Deactivate(context.Background(), "sess-1", "host-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("guest end matches no row", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewSharedSessionRepository(db)

		mock.ExpectExec(`UPDATE shared_sessions SET active = FALSE`).
			WithArgs("sess-1", "guest-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		count, err := repo.Deactivate(context.Background(), "sess-1", "guest-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestUsageMetricRepository_Upsert(t *testing.T) {
	t.Run("upserts on date and language composite", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUsageMetricRepository(db)

		mock.ExpectExec(`INSERT INTO usage_metrics`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Upsert(context.Background(), time.Now(), "javascript", 1, 0)
		assert.NoError(t, err)
	})
}
