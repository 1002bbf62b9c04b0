package agent

import (
	"fmt"
	"time"

	"github.com/nerrad567/touchlink/internal/gpio"
)

// EdgeSampler detects debounced rising edges on a digital input.
//
// It implements debounce by refractory period: a rising edge is accepted
// only if at least the debounce window has elapsed since the last accepted
// edge. Electrical bounce on the rising transition is suppressed without
// requiring a falling-edge re-arm; the tradeoff is that two genuine touches
// closer together than the window count as one.
//
// Sample is called from exactly one goroutine (the tick loop); EdgeSampler
// is not safe for concurrent use and does not need to be.
type EdgeSampler struct {
	pin      gpio.InputPin
	debounce time.Duration

	// baselined is false until the first pin read establishes lastLevel.
	// Without the baseline, a sensor held active at startup would read as
	// a spurious first-tick edge.
	baselined bool
	lastLevel bool
	lastRise  time.Time
}

// NewEdgeSampler creates a sampler over the given input pin.
//
// Parameters:
//   - pin: The touch input
//   - debounce: Minimum spacing between accepted edges
func NewEdgeSampler(pin gpio.InputPin, debounce time.Duration) *EdgeSampler {
	return &EdgeSampler{
		pin:      pin,
		debounce: debounce,
	}
}

// Sample reads the pin once and reports whether a debounced rising edge
// occurred. Call once per tick.
//
// Parameters:
//   - now: Current time from the owning loop's clock
//
// Returns:
//   - bool: true if a debounced rising edge was accepted this tick
//   - error: Pin read failure; the caller logs it and treats the tick
//     as edge-free
func (s *EdgeSampler) Sample(now time.Time) (bool, error) {
	level, err := s.pin.Read()
	if err != nil {
		return false, fmt.Errorf("reading touch pin: %w", err)
	}

	if !s.baselined {
		s.baselined = true
		s.lastLevel = level
		return false, nil
	}

	rising := !s.lastLevel && level
	s.lastLevel = level
	if !rising {
		return false, nil
	}

	// Refractory period: reject edges inside the debounce window.
	if !s.lastRise.IsZero() && now.Sub(s.lastRise) < s.debounce {
		return false, nil
	}

	s.lastRise = now
	return true, nil
}
