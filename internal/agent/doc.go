// Package agent implements the touchlink control loop: a touch on one
// device's sensor lights indicator LEDs on its peers through a shared
// MQTT topic.
//
// # Components
//
//   - EdgeSampler: debounced rising-edge detection over the touch input
//   - Outputs: named output channels with timed activation (decay windows
//     and pulses), rendered to pins once per tick
//   - Router: inbound payload decoding, self-echo separation, dispatch by
//     action
//   - Heartbeat: fixed-phase periodic status announcements
//   - Metrics: process-lifetime operational counters
//   - Agent: the connection-supervising loop composing all of the above
//
// # Session lifecycle
//
// The Agent owns the reconnect cycle. Each session gets a freshly minted
// client identity from the SessionFactory; the identity is the
// deduplication key that separates self-echoes from peer messages. On any
// transport failure (lost connection, failed publish) the session's
// rebuild signal fires, workers stop within one tick, the session is
// closed best-effort, and the cycle restarts with a new identity. Failed
// connection attempts retry after a fixed delay. The loop only exits on
// context cancellation.
//
// # Self-echo behaviour
//
// This implementation uses the dual-indicator variant: the device's own
// touch pulses the echo channel (immediately at publish, restarted when
// the broker echo arrives), while peer touches refresh the presence
// channel's decay window. Self-published messages never reach the remote
// handlers, regardless of action.
//
// # Timing contracts
//
// Decay windows refresh (overwrite) rather than accumulate, so duplicate
// or reordered delivery is harmless. The heartbeat schedule advances by a
// fixed phase so publish jitter never drifts the cadence. The tick period
// must stay shorter than the debounce window; config validation enforces
// this.
package agent
