package agent

import "sync"

// Handler processes one decoded message.
type Handler func(msg Message)

// Router decodes inbound payloads, separates self-echoes from peer
// messages, and dispatches peer messages by action.
//
// Dispatch rules, in order:
//  1. Undecodable payload: the malformed callback fires, nothing else.
//  2. ClientID equals the bound identity: the self-echo handler fires and
//     processing stops. A device must never react to its own touch as if
//     a peer had touched.
//  3. Otherwise the remote callback fires, then the handler registered for
//     the action, if any. An unrecognised action is a no-op, not an error.
//
// Thread Safety: Handle is called from the transport's delivery
// goroutines while SetIdentity is called by the control loop on every new
// session; a mutex covers the identity and handler table.
type Router struct {
	mu          sync.RWMutex
	selfID      string
	handlers    map[Action]Handler
	onSelfEcho  Handler
	onRemote    Handler
	onMalformed func(err error)
}

// NewRouter creates a router with no identity bound and no handlers.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[Action]Handler),
	}
}

// SetIdentity binds the session identity used for self-echo detection.
// Called once per connection session; the handler table persists across
// sessions.
func (r *Router) SetIdentity(id string) {
	r.mu.Lock()
	r.selfID = id
	r.mu.Unlock()
}

// OnAction registers the handler for a peer message action.
func (r *Router) OnAction(action Action, h Handler) {
	r.mu.Lock()
	r.handlers[action] = h
	r.mu.Unlock()
}

// OnSelfEcho registers the handler for messages this device published
// itself.
func (r *Router) OnSelfEcho(h Handler) {
	r.mu.Lock()
	r.onSelfEcho = h
	r.mu.Unlock()
}

// OnRemote registers a callback fired for every valid peer message,
// before action dispatch. Used for counting.
func (r *Router) OnRemote(h Handler) {
	r.mu.Lock()
	r.onRemote = h
	r.mu.Unlock()
}

// OnMalformed registers a callback fired when a payload cannot be decoded.
func (r *Router) OnMalformed(f func(err error)) {
	r.mu.Lock()
	r.onMalformed = f
	r.mu.Unlock()
}

// Handle processes one raw inbound payload. It never returns an error and
// never panics into the transport layer: decode failures are reported
// through the malformed callback and dropped without side effects.
func (r *Router) Handle(raw []byte) {
	msg, err := ParseMessage(raw)

	r.mu.RLock()
	selfID := r.selfID
	onSelfEcho := r.onSelfEcho
	onRemote := r.onRemote
	onMalformed := r.onMalformed
	var handler Handler
	if err == nil {
		handler = r.handlers[msg.Action]
	}
	r.mu.RUnlock()

	if err != nil {
		if onMalformed != nil {
			onMalformed(err)
		}
		return
	}

	// Self-echo: dispatch to the dedicated handler and stop, even if the
	// action would match a remote handler.
	if selfID != "" && msg.ClientID == selfID {
		if onSelfEcho != nil {
			onSelfEcho(msg)
		}
		return
	}

	if onRemote != nil {
		onRemote(msg)
	}
	if handler != nil {
		handler(msg)
	}
}
