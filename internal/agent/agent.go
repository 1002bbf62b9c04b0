package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/touchlink/internal/gpio"
)

// Session is the transport boundary: one live broker connection with its
// per-session identity. Satisfied by the infrastructure mqtt.Session via
// an adapter in main.go.
type Session interface {
	// ClientID returns the identity generated for this session.
	ClientID() string

	// Publish sends a payload to a topic.
	Publish(topic string, payload []byte, qos byte) error

	// Subscribe registers a handler for a topic. The handler runs on the
	// transport's delivery goroutines and must hand off quickly.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error

	// SetOnConnectionLost registers the severed-connection callback.
	SetOnConnectionLost(callback func(err error))

	// Close tears the session down, best-effort.
	Close() error
}

// SessionFactory opens a new transport session. Each call must produce a
// fresh identity; the agent calls it once per reconnect cycle.
type SessionFactory func() (Session, error)

// Logger is the logging interface the agent needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Telemetry receives periodic counter snapshots. Optional; satisfied by
// influxdb.Client.
type Telemetry interface {
	WriteAgentMetrics(device string, fields map[string]interface{})
}

// Options configures an Agent.
type Options struct {
	// DeviceName is the human-readable label for logs and telemetry tags.
	DeviceName string

	// Topic is the single shared topic the fleet publishes and subscribes on.
	Topic string

	// QoS for both publish and subscribe (1 = at-least-once).
	QoS byte

	// Timing parameters (see config.AgentConfig).
	Tick              time.Duration
	DebounceWindow    time.Duration
	DecayWindow       time.Duration
	PulseDuration     time.Duration
	HeartbeatInterval time.Duration
	MetricsInterval   time.Duration

	// RetryDelay is the minimum delay between failed connection attempts.
	RetryDelay time.Duration

	// Connect opens a new session with a fresh identity.
	Connect SessionFactory

	// Hardware boundary: pre-configured pins.
	TouchPin    gpio.InputPin
	PresencePin gpio.OutputPin
	EchoPin     gpio.OutputPin

	// Clock defaults to SystemClock.
	Clock Clock

	// Logger is required.
	Logger Logger

	// Telemetry is optional; nil disables telemetry export.
	Telemetry Telemetry
}

// Agent ties the sampler, router, outputs, heartbeat, and metrics together
// under one connection-supervising control loop.
//
// The Agent owns all shared state explicitly: the output channels and the
// per-session reconnect signal are the only state touched from more than
// one goroutine, and both are internally synchronised. Everything else is
// owned by the tick loop.
type Agent struct {
	opts  Options
	clock Clock
	log   Logger

	sampler   *EdgeSampler
	outputs   *Outputs
	router    *Router
	heartbeat *Heartbeat
	metrics   *Metrics
}

// New creates an Agent from the given options.
//
// Returns:
//   - *Agent: Ready to Run
//   - error: ErrInvalidOptions if required options are missing
func New(opts Options) (*Agent, error) {
	switch {
	case opts.Connect == nil:
		return nil, fmt.Errorf("%w: Connect is required", ErrInvalidOptions)
	case opts.TouchPin == nil:
		return nil, fmt.Errorf("%w: TouchPin is required", ErrInvalidOptions)
	case opts.PresencePin == nil:
		return nil, fmt.Errorf("%w: PresencePin is required", ErrInvalidOptions)
	case opts.EchoPin == nil:
		return nil, fmt.Errorf("%w: EchoPin is required", ErrInvalidOptions)
	case opts.Logger == nil:
		return nil, fmt.Errorf("%w: Logger is required", ErrInvalidOptions)
	case opts.Topic == "":
		return nil, fmt.Errorf("%w: Topic is required", ErrInvalidOptions)
	case opts.Tick <= 0 || opts.DebounceWindow <= 0 || opts.DecayWindow <= 0 ||
		opts.PulseDuration <= 0 || opts.HeartbeatInterval <= 0 || opts.MetricsInterval <= 0:
		return nil, fmt.Errorf("%w: all durations must be positive", ErrInvalidOptions)
	case opts.RetryDelay <= 0:
		return nil, fmt.Errorf("%w: RetryDelay must be positive", ErrInvalidOptions)
	}

	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}

	a := &Agent{
		opts:      opts,
		clock:     opts.Clock,
		log:       opts.Logger,
		sampler:   NewEdgeSampler(opts.TouchPin, opts.DebounceWindow),
		outputs:   NewOutputs(),
		router:    NewRouter(),
		heartbeat: NewHeartbeat(opts.HeartbeatInterval),
		metrics:   NewMetrics(opts.Clock.Now()),
	}

	a.outputs.AddChannel(ChannelPresence, opts.PresencePin)
	a.outputs.AddChannel(ChannelEcho, opts.EchoPin)

	a.router.OnMalformed(func(err error) {
		a.metrics.RecordMalformed()
		a.log.Warn("malformed message dropped", "error", err)
	})
	a.router.OnRemote(func(_ Message) {
		a.metrics.RecordReceive()
	})
	a.router.OnSelfEcho(func(msg Message) {
		// Own touch came back from the broker: pulse the confirmation
		// indicator. Restart semantics make the duplicate of the pulse
		// started at publish time harmless.
		a.outputs.Pulse(ChannelEcho, a.clock.Now(), a.opts.PulseDuration)
		a.log.Debug("self-echo received", "action", msg.Action)
	})
	a.router.OnAction(ActionTouch, func(msg Message) {
		a.outputs.ActivateWindow(ChannelPresence, a.clock.Now(), a.opts.DecayWindow)
		a.log.Info("peer touch", "client_id", msg.ClientID)
	})

	return a, nil
}

// MetricsSnapshot returns the current counters.
func (a *Agent) MetricsSnapshot() Snapshot {
	return a.metrics.Snapshot(a.clock.Now())
}

// Run drives the agent until the context is cancelled.
//
// Each iteration is one connection session: connect with a fresh identity,
// subscribe, run the tick loop, and tear down on interruption. Connection
// attempt failures (timeout, TLS, DNS) are treated uniformly: log and
// retry after RetryDelay. Run only returns on context cancellation, after
// best-effort cleanup; it never returns a steady-state error.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info("agent starting",
		"device", a.opts.DeviceName,
		"topic", a.opts.Topic,
		"tick", a.opts.Tick,
	)

	for ctx.Err() == nil {
		session, err := a.opts.Connect()
		if err != nil {
			a.log.Error("connect failed",
				"error", err,
				"retry_in", a.opts.RetryDelay,
			)
			if !sleepCtx(ctx, a.opts.RetryDelay) {
				break
			}
			continue
		}

		a.metrics.RecordConnection()
		a.log.Info("connected", "client_id", session.ClientID())

		err = a.runSession(ctx, session)

		a.log.Info("closing session", "client_id", session.ClientID())
		_ = session.Close()

		if err != nil {
			// Session setup failed (e.g. subscribe): treat like a failed
			// connection attempt so a broken broker cannot hot-loop us.
			a.log.Error("session failed",
				"error", err,
				"retry_in", a.opts.RetryDelay,
			)
			if !sleepCtx(ctx, a.opts.RetryDelay) {
				break
			}
		}
	}

	a.log.Info("agent stopped")
	return nil
}

// runSession runs the tick loop over one live session. It returns nil when
// the session ended by reconnect signal or shutdown, or an error if the
// session could not be set up.
func (a *Agent) runSession(ctx context.Context, session Session) error {
	// reconnect is this session's rebuild signal: closed exactly once by
	// whichever component first detects the severed transport.
	reconnect := make(chan struct{})
	var once sync.Once
	signalReconnect := func(reason string, err error) {
		once.Do(func() {
			a.log.Warn("session rebuild required", "reason", reason, "error", err)
			close(reconnect)
		})
	}

	session.SetOnConnectionLost(func(err error) {
		signalReconnect("connection lost", err)
	})

	a.router.SetIdentity(session.ClientID())

	if err := session.Subscribe(a.opts.Topic, a.opts.QoS, func(_ string, payload []byte) error {
		a.router.Handle(payload)
		return nil
	}); err != nil {
		return fmt.Errorf("subscribing to %s: %w", a.opts.Topic, err)
	}

	a.heartbeat.Reset(a.clock.Now())

	// Metrics reporter worker, stopped with the session.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.reportMetrics(done)
	}()
	defer func() {
		close(done)
		wg.Wait()
	}()

	ticker := time.NewTicker(a.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reconnect:
			return nil
		case <-ticker.C:
			a.tick(a.clock.Now(), session, signalReconnect)
		}
	}
}

// tick performs one scheduling quantum: sample the touch input, publish
// due messages, and render outputs. Nothing in here blocks beyond the
// bounded publish timeout.
func (a *Agent) tick(now time.Time, session Session, signalReconnect func(string, error)) {
	edge, err := a.sampler.Sample(now)
	if err != nil {
		a.log.Warn("touch sample failed", "error", err)
	}
	if edge {
		a.metrics.RecordTouch()
		// Immediate local confirmation; the broker self-echo restarts it.
		a.outputs.Pulse(ChannelEcho, now, a.opts.PulseDuration)
		a.publish(now, session, ActionTouch, nil, signalReconnect)
	}

	if a.heartbeat.Tick(now) {
		a.publish(now, session, ActionStatus, map[string]any{"status": "alive"}, signalReconnect)
	}

	if renderErr := a.outputs.Render(now); renderErr != nil {
		a.log.Warn("output render failed", "error", renderErr)
	}
}

// publish encodes and sends one message. A transport failure signals a
// session rebuild rather than crashing the loop.
func (a *Agent) publish(now time.Time, session Session, action Action, extra map[string]any, signalReconnect func(string, error)) {
	msg := NewMessage(a.clock, session.ClientID(), action, extra)
	payload, err := msg.Encode()
	if err != nil {
		a.log.Error("encoding message", "action", action, "error", err)
		return
	}

	if err := session.Publish(a.opts.Topic, payload, a.opts.QoS); err != nil {
		signalReconnect("publish failed", err)
		return
	}

	a.metrics.RecordPublish(now)
	a.log.Debug("published", "action", action)
}

// reportMetrics logs and exports counter snapshots until done is closed.
func (a *Agent) reportMetrics(done <-chan struct{}) {
	ticker := time.NewTicker(a.opts.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := a.metrics.Snapshot(a.clock.Now())
			a.log.Info("agent metrics", snap.LogArgs()...)
			if a.opts.Telemetry != nil {
				a.opts.Telemetry.WriteAgentMetrics(a.opts.DeviceName, snap.Fields())
			}
		}
	}
}

// sleepCtx sleeps for d unless the context is cancelled first.
// Returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
