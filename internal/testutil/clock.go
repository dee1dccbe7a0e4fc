// Package testutil provides deterministic collaborators for tests and the
// scenario harness.
package testutil

import (
	"sync"
	"time"
)

// TickingClock is a thread-safe wall clock that advances a fixed step per
// reading from a fixed epoch.
//
// Unlike time.Now, TickingClock can be reset for test reuse. This enables
// the same scenario to run multiple times with identical timestamps.
type TickingClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	n     int64
}

// NewTickingClock creates a clock starting at epoch.
//
// The first call to Now() returns epoch+step.
func NewTickingClock(epoch time.Time, step time.Duration) *TickingClock {
	return &TickingClock{epoch: epoch, step: step}
}

// Now advances the clock one step and returns the new time.
//
// Thread-safe: uses a mutex to protect the tick count.
// Monotonic: successive readings never decrease.
func (c *TickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.epoch.Add(time.Duration(c.n) * c.step)
}

// Current returns the last reading without advancing.
func (c *TickingClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch.Add(time.Duration(c.n) * c.step)
}

// Reset rewinds the clock to the epoch.
//
// Used for test reuse. After Reset(), the next call to Now() returns
// epoch+step again.
func (c *TickingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
