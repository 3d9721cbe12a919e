package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickassist/collab-server-go/internal/model"
	syncchan "github.com/quickassist/collab-server-go/internal/sync"
)

// fanoutChannel hands the subscriber callback back to the test so it
// can inject events mid-stream.
type fanoutChannel struct {
	mu sync.Mutex
	fn syncchan.Handler
}

func (c *fanoutChannel) Publish(ctx context.Context, evt model.SyncEvent) error {
	c.mu.Lock()
	fn := c.fn
	c.mu.Unlock()
	if fn != nil {
		fn(evt)
	}
	return nil
}

func (c *fanoutChannel) Subscribe(sharedSessionID, selfParticipantID string, fn syncchan.Handler) (*syncchan.Subscription, error) {
	c.mu.Lock()
	c.fn = fn
	c.mu.Unlock()
	return syncchan.NewSubscription(func() {}), nil
}

type stubSyncEventRepo struct {
	events    []model.SyncEvent
	gotAfter  string
	gotOrigin string
}

func (r *stubSyncEventRepo) Append(ctx context.Context, evt model.SyncEvent) error { return nil }

func (r *stubSyncEventRepo) ListAfter(ctx context.Context, sharedSessionID, afterID, excludeOrigin string) ([]model.SyncEvent, error) {
	r.gotAfter = afterID
	r.gotOrigin = excludeOrigin
	return r.events, nil
}

func (r *stubSyncEventRepo) TrimOld(ctx context.Context, keep int) (int64, error) { return 0, nil }

func (r *stubSyncEventRepo) DeleteForSession(ctx context.Context, sharedSessionID string) (int64, error) {
	return 0, nil
}

func (r *stubSyncEventRepo) DeleteOrphaned(ctx context.Context) (int64, error) { return 0, nil }

func TestEventsHandler(t *testing.T) {
	t.Run("rejects missing participant id", func(t *testing.T) {
		h := NewEventsHandler(&fanoutChannel{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/collab/sessions/session-1/events", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("streams connected frame, replay, and live events", func(t *testing.T) {
		content := "let x = 1;"
		lang := "javascript"
		repo := &stubSyncEventRepo{events: []model.SyncEvent{{
			ID:                  "0000000000001-aaaa",
			SharedSessionID:     "session-1",
			OriginParticipantID: "host-1",
			Kind:                model.SyncEventEdit,
			CodeContent:         &content,
			Language:            &lang,
		}}}
		ch := &fanoutChannel{}
		h := NewEventsHandler(ch, repo)

		r := chi.NewRouter()
		r.Get("/v1/collab/sessions/{sessionID}/events", h.ServeHTTP)

		ctx, cancel := context.WithCancel(context.Background())
		req := httptest.NewRequest(http.MethodGet,
			"/v1/collab/sessions/session-1/events?participantId=guest-1&after=0000000000000-zzzz", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		go func() {
			// Give the handler time to attach, then push a live event
			// and end the stream.
			time.Sleep(50 * time.Millisecond)
			live := "let x = 2;"
			ch.Publish(context.Background(), model.SyncEvent{
				ID:                  "0000000000002-bbbb",
				SharedSessionID:     "session-1",
				OriginParticipantID: "host-1",
				Kind:                model.SyncEventEdit,
				CodeContent:         &live,
				Language:            &lang,
			})
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		r.ServeHTTP(rec, req)

		body := rec.Body.String()
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Contains(t, body, "event: connected")
		assert.Contains(t, body, "let x = 1;")
		assert.Contains(t, body, "let x = 2;")
		require.Equal(t, "0000000000000-zzzz", repo.gotAfter)
		assert.Equal(t, "guest-1", repo.gotOrigin)
	})

	t.Run("formats sse frames", func(t *testing.T) {
		h := &EventsHandler{}
		rec := httptest.NewRecorder()

		err := h.sendEvent(rec, rec, "connected", map[string]string{"sessionId": "session-1"})

		require.NoError(t, err)
		body := rec.Body.String()
		assert.Contains(t, body, "event: connected\n")
		assert.Contains(t, body, "data: ")
		assert.Contains(t, body, "session-1")
		assert.Contains(t, body, "\n\n")
	})
}
