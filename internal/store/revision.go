package store

import "sync/atomic"

// revisionClock is a monotonic logical clock for snapshot versioning.
//
// Every successful mutation is stamped with a strictly increasing revision.
// This ensures:
// - Consumers can tell stale snapshots from fresh ones without wall clocks
// - A delivery stream is totally ordered across collections
// - Tests can assert on exact revisions deterministically
//
// Thread-safety: safe for concurrent use (atomic operations). In practice
// the store serializes mutations, so only one goroutine advances it.
type revisionClock struct {
	seq atomic.Int64
}

// next returns the next revision and increments the clock.
// Each call returns a unique, increasing value.
func (c *revisionClock) next() int64 {
	return c.seq.Add(1)
}

// current returns the current revision without incrementing.
func (c *revisionClock) current() int64 {
	return c.seq.Load()
}
