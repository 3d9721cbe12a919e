package sync

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/localstore"
	"github.com/quickassist/collab-server-go/internal/model"
)

// PollingChannel is the degraded-mode backend used when no hosted
// registry is reachable: publish appends to the session's bounded log in
// the local profile store, and a periodic timer re-implements push
// delivery by reading past a per-subscriber cursor. The poll interval is
// the staleness bound of this backend. Callers see the same Channel
// interface as the realtime backend; the timer never leaks out.
type PollingChannel struct {
	store    *localstore.Store
	interval time.Duration
}

func NewPollingChannel(store *localstore.Store, interval time.Duration) *PollingChannel {
	return &PollingChannel{store: store, interval: interval}
}

func (c *PollingChannel) Publish(_ context.Context, evt model.SyncEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}
	return c.store.AppendEvent(evt)
}

func (c *PollingChannel) Subscribe(sharedSessionID, selfParticipantID string, fn Handler) (*Subscription, error) {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		// Cursor starts at the log head: a late joiner first replays the
		// retained tail, which carries the current buffer state.
		var cursor string

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				events, err := c.store.EventsAfter(sharedSessionID, cursor, selfParticipantID)
				if err != nil {
					// A missed tick self-heals on the next one.
					log.Debug().Err(err).Msg("sync poll failed")
					continue
				}
				for _, evt := range events {
					fn(evt)
					cursor = evt.ID
				}
			}
		}
	}()

	return NewSubscription(func() { close(done) }), nil
}

var _ Channel = (*PollingChannel)(nil)
