package agent

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// fakeClock is a manually advanced Clock for deterministic timing tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// discardLogger returns a Logger that drops everything.
func discardLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// t0 is an arbitrary fixed instant used across timing tests.
var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
