package agent

import (
	"sync"
	"time"
)

// Metrics tracks operational counters for the lifetime of the process.
//
// Counters survive reconnect cycles; only the process restart resets them.
//
// Thread Safety: safe for concurrent use; counters are written from the
// tick loop and the transport's delivery goroutines.
type Metrics struct {
	mu sync.Mutex

	startup          time.Time
	lastPublish      time.Time
	messagesSent     int64
	messagesReceived int64
	malformed        int64
	touches          int64

	// reconnections starts at -1 so the first successful connection
	// reports zero reconnects.
	reconnections int64
}

// NewMetrics creates a counter set stamped with the process start time.
func NewMetrics(now time.Time) *Metrics {
	return &Metrics{
		startup:       now.UTC(),
		reconnections: -1,
	}
}

// RecordPublish counts one successful publish at the given time.
func (m *Metrics) RecordPublish(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent++
	m.lastPublish = now.UTC()
}

// RecordReceive counts one valid peer message.
func (m *Metrics) RecordReceive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesReceived++
}

// RecordMalformed counts one dropped undecodable payload.
func (m *Metrics) RecordMalformed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformed++
}

// RecordTouch counts one debounced local touch.
func (m *Metrics) RecordTouch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touches++
}

// RecordConnection counts one successful connection. The first call
// brings the reconnection counter to zero.
func (m *Metrics) RecordConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnections++
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	StartupTimestamp time.Time
	UptimeSeconds    int64
	LastPublish      time.Time
	MessagesSent     int64
	MessagesReceived int64
	Malformed        int64
	Touches          int64
	Reconnections    int64
}

// Snapshot captures the current counters.
//
// Parameters:
//   - now: Current time, used to compute uptime
func (m *Metrics) Snapshot(now time.Time) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		StartupTimestamp: m.startup,
		UptimeSeconds:    int64(now.UTC().Sub(m.startup).Seconds()),
		LastPublish:      m.lastPublish,
		MessagesSent:     m.messagesSent,
		MessagesReceived: m.messagesReceived,
		Malformed:        m.malformed,
		Touches:          m.touches,
		Reconnections:    m.reconnections,
	}
}

// Fields returns the snapshot as a field map for telemetry export.
func (s Snapshot) Fields() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds":    s.UptimeSeconds,
		"messages_sent":     s.MessagesSent,
		"messages_received": s.MessagesReceived,
		"malformed":         s.Malformed,
		"touches":           s.Touches,
		"reconnections":     s.Reconnections,
	}
}

// LogArgs returns the snapshot as alternating key/value pairs for
// structured logging.
func (s Snapshot) LogArgs() []any {
	return []any{
		"uptime_seconds", s.UptimeSeconds,
		"messages_sent", s.MessagesSent,
		"messages_received", s.MessagesReceived,
		"malformed", s.Malformed,
		"touches", s.Touches,
		"reconnections", s.Reconnections,
	}
}
