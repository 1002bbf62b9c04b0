package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/touchlink/internal/infrastructure/config"
)

// Session wraps one paho.mqtt.golang connection with a freshly generated
// client identity.
//
// A Session is single-use: it is created connected by Connect and destroyed
// by Close. When the connection is lost the session does not recover itself;
// it reports the loss through the connection-lost callback and the owner is
// expected to Close it and Connect a new one (with a new identity).
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Session struct {
	client   pahomqtt.Client
	clientID string
	cfg      config.MQTTConfig

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// onConnectionLost is invoked (once per session) when the broker
	// connection is severed. Set via SetOnConnectionLost.
	onConnectionLost func(err error)
	callbackMu       sync.RWMutex

	// logger for handler error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked on the paho library's delivery goroutines.
// They must not block for extended periods.
//
// Parameters:
//   - topic: The topic the message was received on
//   - payload: The raw message payload (typically JSON)
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// Connect establishes a new broker session with a fresh client identity.
//
// It performs the following setup:
//  1. Generates a new UUID client id for this session
//  2. Builds connection options from config (broker URL, auth, mTLS)
//  3. Configures a Last Will status message for ungraceful-exit detection
//  4. Attempts the connection with a bounded timeout
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Session: Connected session ready for use
//   - error: If TLS credentials cannot be loaded or the attempt fails
//     within the timeout
func Connect(cfg config.MQTTConfig) (*Session, error) {
	clientID := uuid.NewString()

	opts, err := buildClientOptions(cfg, clientID)
	if err != nil {
		return nil, err
	}

	// Last Will: the broker announces this device's ungraceful exit to
	// peers on the shared topic.
	opts.SetWill(cfg.Topic, string(statusPayload(clientID, "offline", "unexpected_disconnect")), byte(cfg.QoS), false)

	s := &Session{
		clientID: clientID,
		cfg:      cfg,
	}

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, lostErr error) {
		s.handleConnectionLost(lostErr)
	})

	s.client = pahomqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	s.connMu.Lock()
	s.connected = true
	s.connMu.Unlock()

	return s, nil
}

// ClientID returns the identity generated for this session.
// It is unique per session and never reused across reconnects.
func (s *Session) ClientID() string {
	return s.clientID
}

// handleConnectionLost is called by paho when the connection is severed.
func (s *Session) handleConnectionLost(err error) {
	s.connMu.Lock()
	s.connected = false
	s.connMu.Unlock()

	s.callbackMu.RLock()
	callback := s.onConnectionLost
	s.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// Close gracefully tears down the session.
//
// It performs:
//  1. Publishes a graceful offline status (distinct from the Last Will)
//  2. Disconnects with a quiesce period for pending operations
//
// Errors during teardown are swallowed: Close is best-effort by contract
// and is routinely called on sessions whose connection is already gone.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}

	if s.IsConnected() {
		token := s.client.Publish(s.cfg.Topic, byte(s.cfg.QoS), false,
			statusPayload(s.clientID, "offline", "graceful_shutdown"))
		token.WaitTimeout(defaultPublishTimeout)
	}

	s.client.Disconnect(defaultDisconnectQuiesce)

	s.connMu.Lock()
	s.connected = false
	s.connMu.Unlock()

	return nil
}

// IsConnected returns the current connection state.
func (s *Session) IsConnected() bool {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.connected && s.client.IsConnected()
}

// SetOnConnectionLost sets a callback invoked when the broker connection
// is severed. The session does not reconnect itself; the callback is the
// owner's signal to tear down and rebuild.
func (s *Session) SetOnConnectionLost(callback func(err error)) {
	s.callbackMu.Lock()
	s.onConnectionLost = callback
	s.callbackMu.Unlock()
}

// SetLogger sets a logger for handler error and panic logging.
// If not set, errors in handlers are silently ignored.
func (s *Session) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (s *Session) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (s *Session) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := s.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := s.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}

// statusMessage is the payload shape for session status announcements
// (Last Will and graceful shutdown).
type statusMessage struct {
	ClientID  string `json:"client_id"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// statusPayload builds a status announcement for the given session identity.
func statusPayload(clientID, status, reason string) []byte {
	payload, err := json.Marshal(statusMessage{
		ClientID:  clientID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Action:    "status",
		Status:    status,
		Reason:    reason,
	})
	if err != nil {
		// Marshal of a flat struct of strings cannot fail.
		return nil
	}
	return payload
}
