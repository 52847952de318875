package counters

import (
	"sync"
	"testing"
	"time"
)

func TestCounters_ConcurrentIncrements(t *testing.T) {
	c := New()

	const n = 1000

	var wg sync.WaitGroup

	wg.Add(n * 3)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()

			c.IncReceived()
		}()

		go func() {
			defer wg.Done()

			c.IncUniqueProcessed()
		}()

		go func() {
			defer wg.Done()

			c.IncDuplicateDropped()
		}()
	}

	wg.Wait()

	snap := c.Snapshot()
	if snap.Received != n {
		t.Errorf("Received = %d, want %d", snap.Received, n)
	}

	if snap.UniqueProcessed != n {
		t.Errorf("UniqueProcessed = %d, want %d", snap.UniqueProcessed, n)
	}

	if snap.DuplicateDropped != n {
		t.Errorf("DuplicateDropped = %d, want %d", snap.DuplicateDropped, n)
	}
}

func TestCounters_AddLatency(t *testing.T) {
	c := New()

	c.AddLatency(2 * time.Second)
	c.AddLatency(3 * time.Second)

	if got := c.Snapshot().TotalLatency; got != 5*time.Second {
		t.Errorf("TotalLatency = %v, want %v", got, 5*time.Second)
	}
}

func TestCounters_Monotonic(t *testing.T) {
	c := New()

	c.IncReceived()

	prev := c.Snapshot().Received

	for i := 0; i < 10; i++ {
		c.IncReceived()

		cur := c.Snapshot().Received
		if cur < prev {
			t.Fatalf("counter decreased: %d -> %d", prev, cur)
		}

		prev = cur
	}
}
