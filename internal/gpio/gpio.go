package gpio

import (
	"errors"
	"sync"
)

// Sentinel errors for pin setup.
// Pin setup failures are fatal at startup: they indicate a misconfigured
// device, not a transient condition.
var (
	// ErrPinNotFound indicates the named pin does not exist on this host.
	ErrPinNotFound = errors.New("gpio: pin not found")

	// ErrPinConfig indicates the pin could not be configured.
	ErrPinConfig = errors.New("gpio: pin configuration failed")
)

// InputPin reads a digital input level.
//
// The pin is electrically configured (direction, pull) before the agent
// core starts; the core only ever reads it.
type InputPin interface {
	// Read returns the current logical level (true = active/touched).
	Read() (bool, error)
}

// OutputPin drives a digital output level.
type OutputPin interface {
	// Write sets the logical level (true = on).
	Write(bool) error
}

// MemoryPin is an in-memory pin for tests and off-device development.
// It satisfies both InputPin and OutputPin.
//
// Thread Safety: safe for concurrent use.
type MemoryPin struct {
	mu    sync.Mutex
	level bool
}

// NewMemoryPin returns a MemoryPin, initially low.
func NewMemoryPin() *MemoryPin {
	return &MemoryPin{}
}

// Read returns the current level.
func (p *MemoryPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

// Write sets the current level.
func (p *MemoryPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	return nil
}

// Set changes the level directly. Test helper for simulating touches.
func (p *MemoryPin) Set(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

// Level returns the current level without the error return.
func (p *MemoryPin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}
