package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storyreel/storyreel/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestBus_PublishAndHistory(t *testing.T) {
	ctx := context.Background()
	bus := startBus(t)

	require.NoError(t, bus.Publish(ctx, Event{Session: "s1", AttemptID: "a1", Kind: KindSubmitted}))
	require.NoError(t, bus.Publish(ctx, Event{Session: "s2", AttemptID: "b1", Kind: KindSubmitted}))
	require.NoError(t, bus.Publish(ctx, Event{Session: "s1", AttemptID: "a1", Kind: KindSucceeded, VideoRef: "/tmp/v.mp4"}))

	history, err := bus.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, KindSubmitted, history[0].Kind)
	assert.Equal(t, KindSucceeded, history[1].Kind)
	assert.Equal(t, "/tmp/v.mp4", history[1].VideoRef)
	assert.False(t, history[0].At.IsZero(), "publish stamps the time")

	empty, err := bus.History(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBus_SubscribeReplaysAndFollows(t *testing.T) {
	ctx := context.Background()
	bus := startBus(t)

	require.NoError(t, bus.Publish(ctx, Event{Session: "s1", AttemptID: "a1", Kind: KindSubmitted}))

	got := make(chan Event, 4)
	stop, err := bus.Subscribe(ctx, "s1", func(ev Event) { got <- ev })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, bus.Publish(ctx, Event{Session: "other", AttemptID: "x", Kind: KindSubmitted}))
	require.NoError(t, bus.Publish(ctx, Event{Session: "s1", AttemptID: "a1", Kind: KindFailed, Message: "boom"}))

	for _, want := range []Kind{KindSubmitted, KindFailed} {
		select {
		case ev := <-got:
			assert.Equal(t, want, ev.Kind)
			assert.Equal(t, "s1", ev.Session)
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestObserver_PublishesLifecycle(t *testing.T) {
	ctx := context.Background()
	bus := startBus(t)
	obs := bus.Observer("sess")

	obs.Submitted("a1", generation.Request{})
	obs.Succeeded("a1", &generation.Result{AttemptID: "a1", VideoRef: "mem://x", Size: 42})
	obs.Failed("a2", &generation.Error{Kind: generation.KindService, Message: "no voice"})
	obs.Failed("a3", errors.New("plain"))

	history, err := bus.History(ctx, "sess")
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, KindSucceeded, history[1].Kind)
	assert.Equal(t, "mem://x", history[1].VideoRef)
	assert.Equal(t, 42, history[1].Size)

	assert.Equal(t, KindFailed, history[2].Kind)
	assert.Equal(t, generation.KindService, history[2].ErrorKind)
	assert.Equal(t, "no voice", history[2].Message)

	assert.Empty(t, history[3].ErrorKind)
}
