// Package gpio provides the hardware boundary for the touchlink agent.
//
// The agent core only ever sees two capabilities: a digital input that
// reads the touch sensor and digital outputs that drive indicator LEDs.
// Electrical configuration (direction, pull, idle level) happens here,
// once, at startup. The core never reconfigures pins.
//
// Two implementations are provided:
//
//   - TouchInput / LED: real pins via periph.io, resolved by name
//     (e.g. "GPIO17"). Setup failure is fatal at startup since it
//     indicates a misconfigured device.
//   - MemoryPin: an in-memory fake for tests and for running the agent
//     off-device (gpio.enabled: false).
package gpio
