package agent

import "time"

// Heartbeat schedules periodic status announcements on a fixed-phase
// timetable.
//
// The schedule advances by next = next + interval rather than
// next = now + interval, so the nominal fire times form an arithmetic
// sequence regardless of how late individual ticks arrive. Scheduling
// jitter never accumulates into drift. If ticks stall past several
// intervals the scheduler fires once per tick until caught up, preserving
// the at-least-once cadence.
//
// Heartbeat is driven from the single tick loop and is not safe for
// concurrent use.
type Heartbeat struct {
	interval time.Duration
	nextFire time.Time
}

// NewHeartbeat creates a scheduler with the given interval. The schedule
// starts on the first Reset (or the first Tick, which self-arms).
func NewHeartbeat(interval time.Duration) *Heartbeat {
	return &Heartbeat{interval: interval}
}

// Reset re-arms the schedule: the next fire is one interval from now.
// Called at the start of each connection session.
func (h *Heartbeat) Reset(now time.Time) {
	h.nextFire = now.Add(h.interval)
}

// Tick reports whether a heartbeat is due. On a due tick the schedule
// advances by exactly one interval, keeping the fire times phase-stable.
//
// Parameters:
//   - now: Current time from the owning loop's clock
//
// Returns:
//   - bool: true if the caller should publish a status message now
func (h *Heartbeat) Tick(now time.Time) bool {
	if h.nextFire.IsZero() {
		h.Reset(now)
		return false
	}
	if now.Before(h.nextFire) {
		return false
	}
	h.nextFire = h.nextFire.Add(h.interval)
	return true
}

// NextFire returns the nominal time of the next scheduled heartbeat.
func (h *Heartbeat) NextFire() time.Time {
	return h.nextFire
}
