// Package mqtt provides the broker session for the touchlink agent.
//
// This package manages:
//   - Single-use broker sessions with a fresh UUID client identity each
//   - Message publishing with QoS guarantees and bounded timeouts
//   - Topic subscription with panic-recovering handlers
//   - Last Will status announcements for ungraceful-exit detection
//   - Mutual TLS from certificate files
//
// # Session model
//
// Unlike a long-lived client with built-in reconnection, a Session is
// deliberately single-use. The agent's control loop owns the reconnect
// cycle: when the connection is lost (reported via SetOnConnectionLost),
// the loop stops its workers, Closes the dead session, and Connects a new
// one, which mints a new client identity. Identity is the deduplication
// key for self-published messages, so it must be unique per session.
//
// Sessions use clean_session=false so the broker retains subscription
// state for brief drops, but the agent never relies on resumption: every
// rebuild re-subscribes explicitly.
//
// # Usage
//
//	session, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	session.SetOnConnectionLost(func(err error) { /* signal rebuild */ })
//
//	err = session.Subscribe(cfg.MQTT.Topic, byte(cfg.MQTT.QoS),
//	    func(topic string, payload []byte) error {
//	        router.Handle(payload)
//	        return nil
//	    })
package mqtt
