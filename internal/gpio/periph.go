package gpio

import (
	"fmt"
	"sync"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init initialises the host GPIO drivers. It is safe to call more than
// once; only the first call does work.
//
// Returns:
//   - error: If the host has no usable GPIO drivers
func Init() error {
	initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			initErr = fmt.Errorf("%w: host init: %w", ErrPinConfig, err)
		}
	})
	return initErr
}

// TouchInput is an InputPin backed by a periph.io pin configured as a
// pulled-down input. Touch sensor boards (TTP223 and similar) idle low
// and drive high on touch.
type TouchInput struct {
	pin pgpio.PinIn
}

// NewTouchInput resolves and configures the named pin as a touch input.
//
// Parameters:
//   - name: Pin name in periph.io convention (e.g. "GPIO17")
//
// Returns:
//   - *TouchInput: Configured input ready for reading
//   - error: ErrPinNotFound or ErrPinConfig
func NewTouchInput(name string) (*TouchInput, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	if err := pin.In(pgpio.PullDown, pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("%w: %s as input: %w", ErrPinConfig, name, err)
	}
	return &TouchInput{pin: pin}, nil
}

// Read returns the current level (true = touched).
func (t *TouchInput) Read() (bool, error) {
	return bool(t.pin.Read()), nil
}

// LED is an OutputPin backed by a periph.io pin configured as an output,
// initially off.
type LED struct {
	pin pgpio.PinOut
}

// NewLED resolves and configures the named pin as an LED output.
//
// Parameters:
//   - name: Pin name in periph.io convention (e.g. "GPIO27")
//
// Returns:
//   - *LED: Configured output, driven low
//   - error: ErrPinNotFound or ErrPinConfig
func NewLED(name string) (*LED, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	if err := pin.Out(pgpio.Low); err != nil {
		return nil, fmt.Errorf("%w: %s as output: %w", ErrPinConfig, name, err)
	}
	return &LED{pin: pin}, nil
}

// Write drives the LED level (true = on).
func (l *LED) Write(level bool) error {
	if err := l.pin.Out(pgpio.Level(level)); err != nil {
		return fmt.Errorf("%w: %w", ErrPinConfig, err)
	}
	return nil
}
