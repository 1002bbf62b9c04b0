package agent

import "errors"

// Domain-specific errors for the agent core.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMalformedMessage indicates an inbound payload that could not be
	// decoded (non-UTF8, non-JSON, or missing required fields). Malformed
	// messages are counted and dropped, never fatal.
	ErrMalformedMessage = errors.New("agent: malformed message")

	// ErrInvalidOptions indicates the agent was constructed with missing
	// or inconsistent options.
	ErrInvalidOptions = errors.New("agent: invalid options")
)
