package sync

import (
	"context"
	"encoding/json"
	gosync "sync"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/model"
	redisclient "github.com/quickassist/collab-server-go/internal/redis"
	"github.com/quickassist/collab-server-go/internal/repository"
)

const subscriberBuffer = 100

// RealtimeChannel is the hosted backend: publish inserts into the
// append-only sync-event store and pushes through redis pub/sub, which
// delivers to every other subscriber of the session. Delivery order is
// the order redis applies the publishes, which is acceptable because
// consumers apply whole-buffer replacement, not patches.
type RealtimeChannel struct {
	redis  *redisclient.Client
	events repository.SyncEventRepository

	mu       gosync.RWMutex
	sessions map[string]*sessionFanout
	closed   bool
}

type sessionFanout struct {
	cancel      context.CancelFunc
	subscribers map[*subscriber]bool
}

type subscriber struct {
	selfID string
	fn     Handler
	events chan model.SyncEvent
	done   chan struct{}
}

// NewRealtimeChannel creates the redis-backed channel. events may be nil
// on a pure client; the server passes its repository so late subscribers
// can catch up from the persisted log.
func NewRealtimeChannel(redisClient *redisclient.Client, events repository.SyncEventRepository) *RealtimeChannel {
	return &RealtimeChannel{
		redis:    redisClient,
		events:   events,
		sessions: make(map[string]*sessionFanout),
	}
}

func (c *RealtimeChannel) Publish(ctx context.Context, evt model.SyncEvent) error {
	if err := evt.Validate(); err != nil {
		return err
	}

	if c.events != nil {
		// Log insert failures are swallowed: a dropped log entry
		// self-heals on the next publish, since each event carries the
		// whole buffer.
		if err := c.events.Append(ctx, evt); err != nil {
			log.Warn().Err(err).Str("eventId", evt.ID).Msg("failed to persist sync event")
		}
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return c.redis.Publish(ctx, redisclient.SyncChannel(evt.SharedSessionID), data).Err()
}

func (c *RealtimeChannel) Subscribe(sharedSessionID, selfParticipantID string, fn Handler) (*Subscription, error) {
	sub := &subscriber{
		selfID: selfParticipantID,
		fn:     fn,
		events: make(chan model.SyncEvent, subscriberBuffer),
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	fanout, ok := c.sessions[sharedSessionID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		fanout = &sessionFanout{
			cancel:      cancel,
			subscribers: make(map[*subscriber]bool),
		}
		c.sessions[sharedSessionID] = fanout
		go c.pump(ctx, sharedSessionID, fanout)
	}
	fanout.subscribers[sub] = true
	count := len(fanout.subscribers)
	c.mu.Unlock()

	go sub.drain()

	log.Debug().
		Str("sharedSessionId", sharedSessionID).
		Int("subscriberCount", count).
		Msg("sync channel subscribed")

	return NewSubscription(func() { c.unsubscribe(sharedSessionID, sub) }), nil
}

func (c *RealtimeChannel) unsubscribe(sharedSessionID string, sub *subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fanout, ok := c.sessions[sharedSessionID]
	if !ok {
		return
	}

	delete(fanout.subscribers, sub)
	close(sub.done)

	if len(fanout.subscribers) == 0 {
		fanout.cancel()
		delete(c.sessions, sharedSessionID)
	}
}

// pump relays one session's redis channel into its local subscribers.
func (c *RealtimeChannel) pump(ctx context.Context, sharedSessionID string, fanout *sessionFanout) {
	pubsub := c.redis.Subscribe(ctx, redisclient.SyncChannel(sharedSessionID))
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var evt model.SyncEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal sync event")
				continue
			}

			c.broadcast(sharedSessionID, evt)
		}
	}
}

func (c *RealtimeChannel) broadcast(sharedSessionID string, evt model.SyncEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fanout := c.sessions[sharedSessionID]
	if fanout == nil {
		return
	}

	for sub := range fanout.subscribers {
		// Echo suppression: never deliver an event back to its origin.
		if evt.OriginParticipantID == sub.selfID {
			continue
		}
		select {
		case sub.events <- evt:
		default:
			log.Warn().
				Str("sharedSessionId", sharedSessionID).
				Msg("subscriber buffer full, dropping event")
		}
	}
}

// Close tears down every session fanout.
func (c *RealtimeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for id, fanout := range c.sessions {
		fanout.cancel()
		for sub := range fanout.subscribers {
			close(sub.done)
		}
		delete(c.sessions, id)
	}
}

func (s *subscriber) drain() {
	for {
		select {
		case <-s.done:
			return
		case evt := <-s.events:
			s.fn(evt)
		}
	}
}

var _ Channel = (*RealtimeChannel)(nil)
