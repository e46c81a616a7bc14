package testutil

import (
	"time"

	"github.com/rs/zerolog"
)

// NopLogger returns a no-op logger for tests
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// Clock is a deterministic time source for tests. Each call to Now
// advances the clock by Step so successive records get distinct
// timestamps.
type Clock struct {
	current time.Time
	Step    time.Duration
}

// NewClock creates a clock starting at the given time, advancing one
// second per call.
func NewClock(start time.Time) *Clock {
	return &Clock{current: start, Step: time.Second}
}

// Now returns the current time and advances the clock.
func (c *Clock) Now() time.Time {
	t := c.current
	c.current = c.current.Add(c.Step)
	return t
}
