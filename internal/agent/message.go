package agent

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// Action classifies a message on the shared topic.
type Action string

// Known actions. Unrecognised actions are valid messages that simply
// dispatch to no handler.
const (
	// ActionTouch announces a physical touch on the sender's sensor.
	ActionTouch Action = "touch"

	// ActionStatus is a periodic liveness announcement.
	ActionStatus Action = "status"

	// ActionTest is a legacy alias for status messages; some fleet
	// members still publish it.
	ActionTest Action = "test"
)

// Message is the payload exchanged on the shared topic.
//
// The three required fields are fixed; everything else rides in Extra, an
// open map preserved through serialisation for forward compatibility.
// A Message is immutable once constructed.
type Message struct {
	// ClientID is the sender's per-session identity, the deduplication
	// key for self-published messages.
	ClientID string

	// Timestamp is when the sender constructed the message (UTC).
	Timestamp time.Time

	// Action classifies the message.
	Action Action

	// Extra holds any additional fields present in the payload.
	Extra map[string]any
}

// reserved JSON keys that map to fixed Message fields.
const (
	keyClientID  = "client_id"
	keyTimestamp = "timestamp"
	keyAction    = "action"
)

// NewMessage constructs a message stamped with the clock's current time.
//
// Parameters:
//   - clock: Time source for the timestamp
//   - clientID: The sender's session identity
//   - action: Message classification
//   - extra: Optional additional fields (may be nil)
func NewMessage(clock Clock, clientID string, action Action, extra map[string]any) Message {
	return Message{
		ClientID:  clientID,
		Timestamp: clock.Now().UTC(),
		Action:    action,
		Extra:     extra,
	}
}

// MarshalJSON flattens Extra alongside the required fields.
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[keyClientID] = m.ClientID
	out[keyTimestamp] = m.Timestamp.UTC().Format(time.RFC3339Nano)
	out[keyAction] = string(m.Action)
	return json.Marshal(out)
}

// Encode serialises the message for publishing.
func (m Message) Encode() ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return payload, nil
}

// ParseMessage decodes an inbound payload.
//
// Any decode failure (invalid UTF-8, invalid JSON, a non-object payload,
// or a missing/empty action) is reported as ErrMalformedMessage. A missing
// client_id is tolerated (the message can never match the local identity,
// so it dispatches as remote), matching fleet members that predate
// identity stamping. A missing timestamp is tolerated; a present but
// unparsable one is malformed.
//
// Parameters:
//   - raw: The payload bytes as received from the transport
//
// Returns:
//   - Message: The decoded message
//   - error: ErrMalformedMessage-wrapped decode failure
func ParseMessage(raw []byte) (Message, error) {
	if !utf8.Valid(raw) {
		return Message{}, fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedMessage)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	action, _ := fields[keyAction].(string)
	if action == "" {
		return Message{}, fmt.Errorf("%w: missing action", ErrMalformedMessage)
	}

	msg := Message{
		Action: Action(action),
	}

	if clientID, ok := fields[keyClientID].(string); ok {
		msg.ClientID = clientID
	}

	if rawTS, ok := fields[keyTimestamp]; ok {
		ts, ok := rawTS.(string)
		if !ok {
			return Message{}, fmt.Errorf("%w: timestamp is not a string", ErrMalformedMessage)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Message{}, fmt.Errorf("%w: invalid timestamp: %w", ErrMalformedMessage, err)
		}
		msg.Timestamp = parsed
	}

	delete(fields, keyClientID)
	delete(fields, keyTimestamp)
	delete(fields, keyAction)
	if len(fields) > 0 {
		msg.Extra = fields
	}

	return msg, nil
}
