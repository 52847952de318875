// Package counters holds the process-wide monotonic counters shared by the
// ingress API and the worker pool.
package counters

import (
	"sync/atomic"
	"time"
)

// Counters holds the four additive counters. All fields are updated with
// single-address atomic adds — there is no read-modify-write across a
// suspension point, and no lock in front of them.
type Counters struct {
	received         atomic.Int64
	uniqueProcessed  atomic.Int64
	duplicateDropped atomic.Int64
	totalLatencyNs   atomic.Int64
}

// Snapshot is a read of all four counters. Fields may not have
// been sampled at the same instant; each individually reflects some real
// past value.
type Snapshot struct {
	Received         int64
	UniqueProcessed  int64
	DuplicateDropped int64
	TotalLatency     time.Duration
}

// New returns a zeroed Counters.
func New() *Counters {
	return &Counters{}
}

// IncReceived records an accepted /publish request.
func (c *Counters) IncReceived() {
	c.received.Add(1)
}

// IncUniqueProcessed records a worker insert that wrote a new row.
func (c *Counters) IncUniqueProcessed() {
	c.uniqueProcessed.Add(1)
}

// IncDuplicateDropped records a worker insert skipped by the uniqueness constraint.
func (c *Counters) IncDuplicateDropped() {
	c.duplicateDropped.Add(1)
}

// AddLatency accumulates a non-negative observed latency. Negative values
// (a timestamp in the future) are the caller's responsibility to filter —
// this method does not reject them, but worker callers never pass them.
func (c *Counters) AddLatency(d time.Duration) {
	c.totalLatencyNs.Add(int64(d))
}

// Snapshot reads all four counters.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Received:         c.received.Load(),
		UniqueProcessed:  c.uniqueProcessed.Load(),
		DuplicateDropped: c.duplicateDropped.Load(),
		TotalLatency:     time.Duration(c.totalLatencyNs.Load()),
	}
}
