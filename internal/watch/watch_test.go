package watch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/vigil/internal/eventlog"
	"github.com/dyluth/vigil/pkg/event"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestSubscribe_DeliversPublishedEvents(t *testing.T) {
	ctx := context.Background()
	rdb := setupRedis(t)

	sub, err := Subscribe(ctx, rdb, "test")
	require.NoError(t, err)
	defer sub.Close()

	sink, err := eventlog.NewRedisSink(rdb, "test", eventlog.RedisSinkOptions{})
	require.NoError(t, err)

	line, err := event.MarshalLine(event.Event{
		ID:      "e-1",
		Seq:     1,
		At:      1500 * time.Millisecond,
		Kind:    event.KindViolationDetected,
		ActorID: "player",
		RuleID:  "R_QUEUE",
		Topic:   "R_QUEUE",
		PlaceID: "Store",
	})
	require.NoError(t, err)
	require.NoError(t, sink.Append(ctx, line))

	select {
	case e := <-sub.Events():
		assert.Equal(t, "e-1", e.ID)
		assert.Equal(t, event.KindViolationDetected, e.Kind)
		assert.Equal(t, 1500*time.Millisecond, e.At)
		assert.Equal(t, "Store", e.PlaceID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an event from the stream")
	}
}

func TestSubscribe_OtherInstancesAreIgnored(t *testing.T) {
	ctx := context.Background()
	rdb := setupRedis(t)

	sub, err := Subscribe(ctx, rdb, "test")
	require.NoError(t, err)
	defer sub.Close()

	line, err := event.MarshalLine(event.Event{ID: "other", Kind: event.KindUtterance})
	require.NoError(t, err)
	require.NoError(t, rdb.Publish(ctx, eventlog.EventStreamChannel("prod"), line).Err())

	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected event %s", e.ID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribe_ReportsUndecodableMessages(t *testing.T) {
	ctx := context.Background()
	rdb := setupRedis(t)

	sub, err := Subscribe(ctx, rdb, "test")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, rdb.Publish(ctx, eventlog.EventStreamChannel("test"), "not json").Err())

	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "failed to decode stream message")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a decode error")
	}
}

func TestSubscribe_RequiresClient(t *testing.T) {
	_, err := Subscribe(context.Background(), nil, "test")
	assert.Error(t, err)
}

func TestSubscription_CloseEndsEvents(t *testing.T) {
	rdb := setupRedis(t)

	sub, err := Subscribe(context.Background(), rdb, "test")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "second close is a no-op")

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "events channel is closed")
	case <-time.After(2 * time.Second):
		t.Fatal("events channel was not closed")
	}
}
