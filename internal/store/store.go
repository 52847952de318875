package store

import (
	"context"
	"errors"

	"github.com/fluxgate/eventpipe/internal/events"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrTransient indicates a store failure that is not a uniqueness
	// violation — connectivity loss, a malformed payload, or any other
	// failure the caller should log and drop rather than retry inline.
	ErrTransient = errors.New("transient store error")

	// ErrNilEvent indicates an event with an empty topic or event_id was
	// passed to InsertIfAbsent.
	ErrNilEvent = errors.New("event cannot be empty")
)

// Store is the persistence adapter for ProcessedEvents. Implementations must
// make InsertIfAbsent a single round-trip backed by the store's native
// conflict resolution; "select then insert" is not a valid implementation
// since it races two workers onto a duplicate insert.
type Store interface {
	// InsertIfAbsent attempts to persist e. It reports inserted=true if a new
	// row was written, inserted=false if the uniqueness constraint on
	// (topic, event_id) rejected the write. An event with an empty topic or
	// event_id is rejected with ErrNilEvent; any other failure is wrapped in
	// ErrTransient.
	InsertIfAbsent(ctx context.Context, e events.Event) (inserted bool, err error)

	// CountEvents returns the total row count.
	CountEvents(ctx context.Context) (int64, error)

	// ListEvents returns up to limit rows ordered by id descending. An empty
	// topic means no filter. A negative limit defaults to 20; limit == 0
	// returns no rows (internal/ingress passes an explicit limit=0 through
	// for an empty result).
	ListEvents(ctx context.Context, topic string, limit int) ([]events.ProcessedEvent, error)

	// EnsureSchema idempotently creates the processed_events relation and its
	// uniqueness constraint.
	EnsureSchema(ctx context.Context) error

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the store's resources. Safe to call multiple times.
	Close() error
}
