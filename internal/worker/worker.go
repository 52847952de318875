// Package worker implements the pool of background consumers that drain the
// broker FIFO and persist events through the store's insert-if-absent
// protocol.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fluxgate/eventpipe/internal/counters"
	"github.com/fluxgate/eventpipe/internal/events"
	"github.com/fluxgate/eventpipe/internal/queue"
	"github.com/fluxgate/eventpipe/internal/store"
)

// Count is the fixed size of the worker pool. Not configurable — the core
// contract is 5 workers, a design decision preserved rather than exposed.
const Count = 5

// popTimeout bounds how long a worker blocks on an empty queue before
// checking for cancellation again. It also bounds shutdown latency.
const popTimeout = 1 * time.Second

// Worker is a single long-running consumer. Workers are stateless and
// interchangeable; any worker may process any item.
type Worker struct {
	id       int
	broker   queue.Broker
	store    store.Store
	counters *counters.Counters
	logger   *slog.Logger
}

// New returns a Worker with its own broker handle — workers never share a
// broker connection with the ingress or with each other.
func New(id int, broker queue.Broker, st store.Store, c *counters.Counters, logger *slog.Logger) *Worker {
	return &Worker{
		id:       id,
		broker:   broker,
		store:    st,
		counters: c,
		logger:   logger.With(slog.Int("worker_id", id)),
	}
}

// Run drives the worker's loop until ctx is cancelled. A cancelled worker
// that is mid-insert is allowed to finish that insert; the next iteration's
// pop unblocks within popTimeout and the loop exits.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopping")

			return
		}

		item, ok, err := w.broker.BlockingPopRight(ctx, popTimeout)
		if err != nil {
			w.logger.Error("broker pop error", slog.String("error", err.Error()))

			continue
		}

		if !ok {
			continue
		}

		w.processItem(ctx, item)
	}
}

// processItem is the per-item logical transaction: decode, estimate latency,
// insert-if-absent, update counters. A failure here is logged and the item
// is dropped — it is never re-enqueued. A panic while processing the item is
// recovered and logged, so it drops the item rather than killing the worker.
func (w *Worker) processItem(ctx context.Context, item string) {
	defer func() {
		if panicked := recover(); panicked != nil {
			w.logger.Error("dropping item after panic", slog.Any("panic", panicked))
		}
	}()

	var e events.Event

	if err := json.Unmarshal([]byte(item), &e); err != nil {
		w.logger.Warn("dropping undecodable item", slog.String("error", err.Error()))

		return
	}

	if ts, err := e.ParseTimestamp(); err == nil {
		if latency := time.Since(ts); latency > 0 {
			w.counters.AddLatency(latency)
		}
	}

	inserted, err := w.store.InsertIfAbsent(ctx, e)
	if err != nil {
		if errors.Is(err, store.ErrTransient) {
			w.logger.Error("dropping item after transient store error",
				slog.String("topic", e.Topic), slog.String("event_id", e.EventID), slog.String("error", err.Error()))

			return
		}

		w.logger.Error("dropping item after store error",
			slog.String("topic", e.Topic), slog.String("event_id", e.EventID), slog.String("error", err.Error()))

		return
	}

	if inserted {
		w.counters.IncUniqueProcessed()
	} else {
		w.counters.IncDuplicateDropped()
	}
}

// Pool owns the fixed set of worker goroutines and their shared cancellation.
type Pool struct {
	workers []*Worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool constructs Count workers, each with its own broker connection
// built by newBroker.
func NewPool(newBroker func() (queue.Broker, error), st store.Store, c *counters.Counters, logger *slog.Logger) (*Pool, error) {
	workers := make([]*Worker, 0, Count)

	for i := 0; i < Count; i++ {
		b, err := newBroker()
		if err != nil {
			for _, w := range workers {
				_ = w.broker.Close()
			}

			return nil, err
		}

		workers = append(workers, New(i, b, st, c, logger))
	}

	return &Pool{workers: workers}, nil
}

// Start spawns all workers as goroutines bound to a context derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for _, w := range p.workers {
		p.wg.Add(1)

		go func(w *Worker) {
			defer p.wg.Done()

			w.Run(runCtx)
		}(w)
	}
}

// Shutdown cancels all worker loops, waits for them to exit, then closes
// every worker's broker connection.
func (p *Pool) Shutdown() {
	if p.cancel != nil {
		p.cancel()
	}

	p.wg.Wait()

	for _, w := range p.workers {
		if err := w.broker.Close(); err != nil {
			w.logger.Warn("error closing worker broker connection", slog.String("error", err.Error()))
		}
	}
}
