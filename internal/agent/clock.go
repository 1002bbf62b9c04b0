package agent

import "time"

// Clock provides the current time. Every time-dependent component in this
// package takes a Clock so tests can drive debounce, decay, and heartbeat
// logic deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
