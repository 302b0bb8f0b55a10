package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for tests.
//
// Each call to Now returns the current instant and then advances it by step,
// so successive timestamps are distinct and predictable. A zero step freezes
// the clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewStepClock creates a clock starting at start (converted to UTC).
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	start = start.UTC()
	return &StepClock{start: start, now: start, step: step}
}

// Now returns the current instant and advances the clock.
// Matches the func() time.Time shape expected by ledger.WithClock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Current returns the next instant Now will return, without advancing.
func (c *StepClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to its start.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
