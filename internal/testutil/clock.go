package testutil

import (
	"sync"
	"time"
)

// FixedTime is the instant every FixedClock starts at unless told otherwise.
var FixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// FixedClock is a wall clock that only moves when Advance is called.
//
// Pass clock.Now wherever a service accepts a func() time.Time so that
// created timestamps are predictable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock reading start. A zero start means FixedTime.
func NewFixedClock(start time.Time) *FixedClock {
	if start.IsZero() {
		start = FixedTime
	}
	return &FixedClock{now: start}
}

// Now returns the current reading.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
