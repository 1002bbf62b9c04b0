package agent

import (
	"errors"
	"fmt"
	"testing"
)

func encodeTestMessage(t *testing.T, clientID string, action Action) []byte {
	t.Helper()
	payload, err := NewMessage(newFakeClock(t0), clientID, action, nil).Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return payload
}

func TestRouter_SelfEchoExcludedFromRemoteHandlers(t *testing.T) {
	// Self-published messages must never reach the remote path, whatever
	// the action.
	actions := []Action{ActionTouch, ActionStatus, ActionTest, Action("custom")}

	for _, action := range actions {
		t.Run(string(action), func(t *testing.T) {
			router := NewRouter()
			router.SetIdentity("self-id")

			var selfEchoes, remotes, touches int
			router.OnSelfEcho(func(Message) { selfEchoes++ })
			router.OnRemote(func(Message) { remotes++ })
			router.OnAction(action, func(Message) { touches++ })

			router.Handle(encodeTestMessage(t, "self-id", action))

			if selfEchoes != 1 {
				t.Errorf("selfEchoes = %d, want 1", selfEchoes)
			}
			if remotes != 0 {
				t.Errorf("remotes = %d, want 0", remotes)
			}
			if touches != 0 {
				t.Errorf("action handler calls = %d, want 0", touches)
			}
		})
	}
}

func TestRouter_PeerMessageDispatches(t *testing.T) {
	router := NewRouter()
	router.SetIdentity("self-id")

	var remotes int
	var handled []Message
	router.OnRemote(func(Message) { remotes++ })
	router.OnAction(ActionTouch, func(msg Message) { handled = append(handled, msg) })

	router.Handle(encodeTestMessage(t, "peer-id", ActionTouch))

	if remotes != 1 {
		t.Errorf("remotes = %d, want 1", remotes)
	}
	if len(handled) != 1 {
		t.Fatalf("handled = %d messages, want 1", len(handled))
	}
	if handled[0].ClientID != "peer-id" {
		t.Errorf("ClientID = %q, want peer-id", handled[0].ClientID)
	}
}

func TestRouter_UnknownActionIsNoOp(t *testing.T) {
	router := NewRouter()
	router.SetIdentity("self-id")

	var remotes, malformed int
	router.OnRemote(func(Message) { remotes++ })
	router.OnMalformed(func(error) { malformed++ })

	router.Handle(encodeTestMessage(t, "peer-id", Action("juggle")))

	if remotes != 1 {
		t.Errorf("remotes = %d, want 1 (unknown action is still a valid peer message)", remotes)
	}
	if malformed != 0 {
		t.Errorf("malformed = %d, want 0", malformed)
	}
}

func TestRouter_MalformedReportedAndDropped(t *testing.T) {
	router := NewRouter()
	router.SetIdentity("self-id")

	var lastErr error
	var remotes int
	router.OnMalformed(func(err error) { lastErr = err })
	router.OnRemote(func(Message) { remotes++ })

	router.Handle([]byte(`not json at all`))

	if !errors.Is(lastErr, ErrMalformedMessage) {
		t.Errorf("malformed callback error = %v, want ErrMalformedMessage", lastErr)
	}
	if remotes != 0 {
		t.Errorf("remotes = %d, want 0", remotes)
	}
}

func TestRouter_NoIdentityMeansNoSelfEcho(t *testing.T) {
	// Before SetIdentity the router cannot classify anything as self.
	router := NewRouter()

	var selfEchoes, remotes int
	router.OnSelfEcho(func(Message) { selfEchoes++ })
	router.OnRemote(func(Message) { remotes++ })

	router.Handle(encodeTestMessage(t, "anyone", ActionTouch))

	if selfEchoes != 0 {
		t.Errorf("selfEchoes = %d, want 0", selfEchoes)
	}
	if remotes != 1 {
		t.Errorf("remotes = %d, want 1", remotes)
	}
}

func TestRouter_IdentityRebindsAcrossSessions(t *testing.T) {
	router := NewRouter()

	var selfEchoes, remotes int
	router.OnSelfEcho(func(Message) { selfEchoes++ })
	router.OnRemote(func(Message) { remotes++ })

	router.SetIdentity("session-1")
	router.Handle(encodeTestMessage(t, "session-1", ActionTouch))

	router.SetIdentity("session-2")
	// The old identity now looks like a peer; real fleets cannot collide
	// because identities are random per session.
	router.Handle(encodeTestMessage(t, "session-1", ActionTouch))
	router.Handle(encodeTestMessage(t, "session-2", ActionTouch))

	if selfEchoes != 2 {
		t.Errorf("selfEchoes = %d, want 2", selfEchoes)
	}
	if remotes != 1 {
		t.Errorf("remotes = %d, want 1", remotes)
	}
}

func TestRouter_ConcurrentHandleIsSafe(t *testing.T) {
	router := NewRouter()
	router.SetIdentity("self-id")
	router.OnRemote(func(Message) {})
	router.OnAction(ActionTouch, func(Message) {})

	payloads := make([][]byte, 8)
	for i := range payloads {
		payloads[i] = encodeTestMessage(t, fmt.Sprintf("peer-%d", i), ActionTouch)
	}

	done := make(chan struct{})
	for _, p := range payloads {
		go func(raw []byte) {
			for i := 0; i < 100; i++ {
				router.Handle(raw)
			}
			done <- struct{}{}
		}(p)
	}
	go func() {
		for i := 0; i < 100; i++ {
			router.SetIdentity(fmt.Sprintf("id-%d", i))
		}
		done <- struct{}{}
	}()

	for i := 0; i < len(payloads)+1; i++ {
		<-done
	}
}
