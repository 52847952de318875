package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) (Broker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(mr.Close)

	b, err := NewRedisBroker(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)

	t.Cleanup(func() { _ = b.Close() })

	return b, mr
}

func TestRedisBroker_PushAndPop(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBroker(t)

	require.NoError(t, b.PushLeft(ctx, `{"topic":"t","event_id":"e1"}`))

	item, ok, err := b.BlockingPopRight(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"topic":"t","event_id":"e1"}`, item)
}

func TestRedisBroker_PopTimeoutReturnsNoItem(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBroker(t)

	_, ok, err := b.BlockingPopRight(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisBroker_FIFOOrderForSingleEnqueuer(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBroker(t)

	require.NoError(t, b.PushLeft(ctx, "first"))
	require.NoError(t, b.PushLeft(ctx, "second"))

	item, ok, err := b.BlockingPopRight(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", item)

	item, ok, err = b.BlockingPopRight(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", item)
}

func TestRedisBroker_Length(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBroker(t)

	n, err := b.Length(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), n)

	require.NoError(t, b.PushLeft(ctx, "a"))
	require.NoError(t, b.PushLeft(ctx, "b"))

	n, err = b.Length(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}
