// Package sync carries edit events between the participants of one
// shared session. Two interchangeable backends implement the same
// subscription interface: a redis-backed push channel for the hosted
// deployment, and a polling loop over the local profile store for
// local-only operation. The backend is chosen once at session
// establishment; callers never see which one they got.
package sync

import (
	"context"
	gosync "sync"

	"github.com/quickassist/collab-server-go/internal/model"
)

// Handler receives remote events in delivery order. Self-originated
// events are filtered out before the handler sees them.
type Handler func(model.SyncEvent)

type Channel interface {
	// Publish appends one event to the session's log and pushes it to
	// the other subscribers.
	Publish(ctx context.Context, evt model.SyncEvent) error

	// Subscribe delivers the session's events, excluding those
	// originated by selfParticipantID, until the subscription is closed.
	Subscribe(sharedSessionID, selfParticipantID string, fn Handler) (*Subscription, error)
}

// Subscription is a handle on one active subscription. Close fully
// releases the backing pubsub or timer; closing twice is a no-op.
type Subscription struct {
	once gosync.Once
	stop func()
}

// NewSubscription wraps a teardown func. Channel implementations call
// this from Subscribe.
func NewSubscription(stop func()) *Subscription {
	return &Subscription{stop: stop}
}

func (s *Subscription) Close() {
	s.once.Do(s.stop)
}
