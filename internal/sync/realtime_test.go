package sync

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/quickassist/collab-server-go/internal/redis"
)

func openRealtimeChannel(t *testing.T) *RealtimeChannel {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := redisclient.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ch := NewRealtimeChannel(client, nil)
	t.Cleanup(ch.Close)
	return ch
}

func TestRealtimeChannel_DeliversToOtherParticipants(t *testing.T) {
	ch := openRealtimeChannel(t)
	ctx := context.Background()

	host := &recorder{}
	guest := &recorder{}

	hostSub, err := ch.Subscribe("sess-1", "host-1", host.handle)
	require.NoError(t, err)
	defer hostSub.Close()

	guestSub, err := ch.Subscribe("sess-1", "guest-1", guest.handle)
	require.NoError(t, err)
	defer guestSub.Close()

	// Give the pubsub goroutine time to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, ch.Publish(ctx, newEditEvent("sess-1", "host-1", "let x=1;")))

	require.Eventually(t, func() bool {
		return len(guest.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got := guest.snapshot()[0]
	assert.Equal(t, "host-1", got.OriginParticipantID)
	assert.Equal(t, "let x=1;", *got.CodeContent)

	// Echo suppression: the origin never hears its own event.
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, host.snapshot())
}

func TestRealtimeChannel_ScopedPerSession(t *testing.T) {
	ch := openRealtimeChannel(t)
	ctx := context.Background()

	other := &recorder{}
	sub, err := ch.Subscribe("sess-2", "guest-1", other.handle)
	require.NoError(t, err)
	defer sub.Close()

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, ch.Publish(ctx, newEditEvent("sess-1", "host-1", "v1")))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, other.snapshot())
}

func TestRealtimeChannel_Unsubscribe(t *testing.T) {
	ch := openRealtimeChannel(t)
	ctx := context.Background()

	guest := &recorder{}
	sub, err := ch.Subscribe("sess-1", "guest-1", guest.handle)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	sub.Close()
	sub.Close() // double-unsubscribe is a no-op

	require.NoError(t, ch.Publish(ctx, newEditEvent("sess-1", "host-1", "after close")))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, guest.snapshot())
}
