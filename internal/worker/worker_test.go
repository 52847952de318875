package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/fluxgate/eventpipe/internal/counters"
	"github.com/fluxgate/eventpipe/internal/events"
	"github.com/fluxgate/eventpipe/internal/queue"
	"github.com/fluxgate/eventpipe/internal/store"
)

// fakeStore is an in-memory store.Store double keyed on (topic, event_id),
// mirroring the uniqueness constraint without a real database.
type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]events.ProcessedEvent
	nextID  int64
	failing bool
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]events.ProcessedEvent)}
}

func (f *fakeStore) key(topic, eventID string) string { return topic + "\x00" + eventID }

func (f *fakeStore) InsertIfAbsent(_ context.Context, e events.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		return false, fmt.Errorf("%w: simulated failure", store.ErrTransient)
	}

	k := f.key(e.Topic, e.EventID)
	if _, exists := f.rows[k]; exists {
		return false, nil
	}

	f.nextID++
	f.rows[k] = events.ProcessedEvent{
		ID: f.nextID, Topic: e.Topic, EventID: e.EventID, Timestamp: e.Timestamp,
		Source: e.Source, Payload: e.Payload, CreatedAt: time.Now(),
	}

	return true, nil
}

func (f *fakeStore) CountEvents(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return int64(len(f.rows)), nil
}

func (f *fakeStore) ListEvents(context.Context, string, int) ([]events.ProcessedEvent, error) {
	return nil, nil
}

func (f *fakeStore) EnsureSchema(context.Context) error { return nil }
func (f *fakeStore) HealthCheck(context.Context) error  { return nil }
func (f *fakeStore) Close() error                       { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBroker(t *testing.T) queue.Broker {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(mr.Close)

	b, err := queue.NewRedisBroker(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)

	t.Cleanup(func() { _ = b.Close() })

	return b
}

func TestWorker_InsertsUniqueEvent(t *testing.T) {
	broker := newTestBroker(t)
	fs := newFakeStore()
	c := counters.New()
	w := New(0, broker, fs, c, testLogger())

	require.NoError(t, broker.PushLeft(context.Background(), `{"topic":"t","event_id":"e1","timestamp":"2025-01-01T00:00:00"}`))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return c.Snapshot().UniqueProcessed == 1
	}, time.Second, 10*time.Millisecond)

	count, _ := fs.CountEvents(context.Background())
	require.Equal(t, int64(1), count)
}

func TestWorker_DuplicateIsCountedNotStoredTwice(t *testing.T) {
	broker := newTestBroker(t)
	fs := newFakeStore()
	c := counters.New()
	w := New(0, broker, fs, c, testLogger())

	item := `{"topic":"t","event_id":"e1","timestamp":"2025-01-01T00:00:00"}`
	require.NoError(t, broker.PushLeft(context.Background(), item))
	require.NoError(t, broker.PushLeft(context.Background(), item))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	go w.Run(ctx)

	require.Eventually(t, func() bool {
		snap := c.Snapshot()

		return snap.UniqueProcessed == 1 && snap.DuplicateDropped == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorker_DecodeFailureIsDroppedNotCounted(t *testing.T) {
	broker := newTestBroker(t)
	fs := newFakeStore()
	c := counters.New()
	w := New(0, broker, fs, c, testLogger())

	require.NoError(t, broker.PushLeft(context.Background(), "not-json"))
	require.NoError(t, broker.PushLeft(context.Background(), `{"topic":"t","event_id":"e1","timestamp":"2025-01-01T00:00:00"}`))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return c.Snapshot().UniqueProcessed == 1
	}, 2*time.Second, 10*time.Millisecond)

	snap := c.Snapshot()
	require.Equal(t, int64(0), snap.DuplicateDropped)
}

func TestWorker_TransientStoreErrorDropsWithoutCounting(t *testing.T) {
	broker := newTestBroker(t)
	fs := newFakeStore()
	fs.failing = true
	c := counters.New()
	w := New(0, broker, fs, c, testLogger())

	require.NoError(t, broker.PushLeft(context.Background(), `{"topic":"t","event_id":"e1","timestamp":"2025-01-01T00:00:00"}`))

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	snap := c.Snapshot()
	require.Equal(t, int64(0), snap.UniqueProcessed)
	require.Equal(t, int64(0), snap.DuplicateDropped)
}

func TestWorker_StopsWithinPopTimeoutOnCancellation(t *testing.T) {
	broker := newTestBroker(t)
	fs := newFakeStore()
	c := counters.New()
	w := New(0, broker, fs, c, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})

	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop within the pop timeout after cancellation")
	}
}
