package localstore

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickassist/collab-server-go/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "profile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func editEvent(sessionID, origin, id, content string) model.SyncEvent {
	lang := "javascript"
	return model.SyncEvent{
		ID:                  id,
		SharedSessionID:     sessionID,
		OriginParticipantID: origin,
		Kind:                model.SyncEventEdit,
		CodeContent:         &content,
		Language:            &lang,
		CreatedAt:           time.Now(),
	}
}

func TestIdentity(t *testing.T) {
	t.Run("empty before first put", func(t *testing.T) {
		store := openTestStore(t)

		id, err := store.GetIdentity()
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("persists and returns same value", func(t *testing.T) {
		store := openTestStore(t)

		require.NoError(t, store.PutIdentity("participant-1"))

		id, err := store.GetIdentity()
		require.NoError(t, err)
		assert.Equal(t, "participant-1", id)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		store := openTestStore(t)

		require.NoError(t, store.PutIdentity("participant-1"))
		assert.Error(t, store.PutIdentity("participant-2"))

		id, err := store.GetIdentity()
		require.NoError(t, err)
		assert.Equal(t, "participant-1", id)
	})
}

func TestEventLog(t *testing.T) {
	t.Run("returns events after cursor in log order", func(t *testing.T) {
		store := openTestStore(t)

		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("%013d-aaaa", 1000+i)
			require.NoError(t, store.AppendEvent(editEvent("sess-1", "host", id, fmt.Sprintf("v%d", i))))
		}

		events, err := store.EventsAfter("sess-1", fmt.Sprintf("%013d-aaaa", 1001), "guest")
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "v2", *events[0].CodeContent)
		assert.Equal(t, "v4", *events[2].CodeContent)
	})

	t.Run("filters self-originated events", func(t *testing.T) {
		store := openTestStore(t)

		require.NoError(t, store.AppendEvent(editEvent("sess-1", "host", "0000000001000-a", "from host")))
		require.NoError(t, store.AppendEvent(editEvent("sess-1", "guest", "0000000001001-a", "from guest")))

		events, err := store.EventsAfter("sess-1", "", "guest")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "host", events[0].OriginParticipantID)
	})

	t.Run("cap drops oldest not newest", func(t *testing.T) {
		store := openTestStore(t)

		// 51 events against a 50-event cap: the latest must survive.
		for i := 0; i < DefaultRetention+1; i++ {
			id := fmt.Sprintf("%013d-aaaa", 1000+i)
			require.NoError(t, store.AppendEvent(editEvent("sess-1", "host", id, fmt.Sprintf("v%d", i))))
		}

		events, err := store.EventsAfter("sess-1", "", "guest")
		require.NoError(t, err)
		require.Len(t, events, DefaultRetention)
		assert.Equal(t, fmt.Sprintf("v%d", DefaultRetention), *events[len(events)-1].CodeContent)
		// v0 was dropped
		assert.Equal(t, "v1", *events[0].CodeContent)
	})

	t.Run("logs are scoped per session", func(t *testing.T) {
		store := openTestStore(t)

		require.NoError(t, store.AppendEvent(editEvent("sess-1", "host", "0000000001000-a", "one")))
		require.NoError(t, store.AppendEvent(editEvent("sess-2", "host", "0000000001001-a", "two")))

		events, err := store.EventsAfter("sess-1", "", "")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "one", *events[0].CodeContent)
	})

	t.Run("delete log is a no-op for unknown session", func(t *testing.T) {
		store := openTestStore(t)
		assert.NoError(t, store.DeleteLog("missing"))
	})
}

func TestFallbackSlots(t *testing.T) {
	t.Run("round-trips buffer per session and language", func(t *testing.T) {
		store := openTestStore(t)

		require.NoError(t, store.PutSlot("owner-1", "go", "package main"))
		require.NoError(t, store.PutSlot("owner-1", "python", "print('hi')"))

		slot, err := store.GetSlot("owner-1", "go")
		require.NoError(t, err)
		require.NotNil(t, slot)
		assert.Equal(t, "package main", slot.CodeContent)
		assert.Equal(t, "go", slot.Language)
	})

	t.Run("missing slot returns nil", func(t *testing.T) {
		store := openTestStore(t)

		slot, err := store.GetSlot("owner-1", "rust")
		require.NoError(t, err)
		assert.Nil(t, slot)
	})
}
