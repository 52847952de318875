// Package queue provides the FIFO broker adapter decoupling the ingress API
// from the worker pool.
package queue

import (
	"context"
	"errors"
	"time"
)

// QueueName is the fixed key of the events FIFO. Not configurable, per the
// external interface contract.
const QueueName = "events_queue"

// ErrBroker wraps any broker failure surfaced to the ingress API as a 500.
var ErrBroker = errors.New("broker error")

// Broker is a thin wrapper over a FIFO list-broker: push_left,
// blocking_pop_right(timeout), length. It is a black box FIFO — no ordering
// between concurrent enqueuers is promised, only that each item is delivered
// exactly once to exactly one popper.
type Broker interface {
	// PushLeft prepends item to the FIFO head.
	PushLeft(ctx context.Context, item string) error

	// BlockingPopRight pops from the tail, blocking up to timeout. ok is
	// false if timeout elapsed with no item — this is not an error.
	BlockingPopRight(ctx context.Context, timeout time.Duration) (item string, ok bool, err error)

	// Length reports the current queue depth. Best-effort: not transactional
	// with concurrent push/pop.
	Length(ctx context.Context) (int64, error)

	// Close releases the broker client's resources.
	Close() error
}
