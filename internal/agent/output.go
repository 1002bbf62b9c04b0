package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/touchlink/internal/gpio"
)

// Output channel names wired by the agent.
const (
	// ChannelPresence indicates recent peer activity (decay window).
	ChannelPresence = "presence"

	// ChannelEcho confirms this device's own touches (short pulse).
	ChannelEcho = "echo"
)

// channel is one named output with timed activation state.
type channel struct {
	pin gpio.OutputPin

	// activeUntil is the timestamp the output stays active until.
	activeUntil time.Time

	// lastLevel/haveLevel track the last written level so Render only
	// touches the pin on transitions.
	lastLevel bool
	haveLevel bool
}

// Outputs holds the timed state of all output channels and renders them
// to their pins each tick.
//
// Thread Safety: safe for concurrent use. State is written both by the
// tick loop (local touches, render) and by the transport's delivery
// goroutines (remote events via the router); a single mutex covers both.
type Outputs struct {
	mu       sync.Mutex
	channels map[string]*channel
}

// NewOutputs creates an empty output set.
func NewOutputs() *Outputs {
	return &Outputs{
		channels: make(map[string]*channel),
	}
}

// AddChannel registers a named output channel. Channels are registered
// once, before the agent starts; an unknown name in later calls is a
// silent no-op so a two-channel agent and a one-channel agent share the
// same wiring code.
func (o *Outputs) AddChannel(name string, pin gpio.OutputPin) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.channels[name] = &channel{pin: pin}
}

// ActivateWindow holds the channel active until now + window.
//
// Each qualifying event refreshes the window by overwriting the deadline:
// two events never accumulate into a longer window than one event at the
// later timestamp would produce. Safe under duplicate or reordered
// delivery.
func (o *Outputs) ActivateWindow(name string, now time.Time, window time.Duration) {
	o.setDeadline(name, now.Add(window))
}

// Pulse activates the channel for a short fixed duration. A new pulse
// restarts the duration; concurrent pulses do not compose.
func (o *Outputs) Pulse(name string, now time.Time, duration time.Duration) {
	o.setDeadline(name, now.Add(duration))
}

func (o *Outputs) setDeadline(name string, deadline time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch, ok := o.channels[name]
	if !ok {
		return
	}
	ch.activeUntil = deadline
}

// Active reports whether the named channel is active at the given time.
func (o *Outputs) Active(name string, now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch, ok := o.channels[name]
	if !ok {
		return false
	}
	return now.Before(ch.activeUntil)
}

// Render writes each channel's level to its pin. Called once per tick.
//
// The level is purely time-derived (active while now < deadline), so
// Render is idempotent; pins are only written on transitions.
//
// Returns:
//   - error: The first pin write failure, for logging. Remaining channels
//     are still rendered.
func (o *Outputs) Render(now time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var firstErr error
	for name, ch := range o.channels {
		active := now.Before(ch.activeUntil)
		if ch.haveLevel && active == ch.lastLevel {
			continue
		}
		if err := ch.pin.Write(active); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("writing %s output: %w", name, err)
			}
			continue
		}
		ch.lastLevel = active
		ch.haveLevel = true
	}
	return firstErr
}
