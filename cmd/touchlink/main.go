// Touchlink - distributed touch-to-light agent
//
// This is the main entry point for the touchlink agent. Each device in the
// fleet runs one agent: a touch on its sensor lights indicator LEDs on all
// peers through a shared MQTT topic.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/touchlink/internal/agent"
	"github.com/nerrad567/touchlink/internal/gpio"
	"github.com/nerrad567/touchlink/internal/infrastructure/config"
	"github.com/nerrad567/touchlink/internal/infrastructure/influxdb"
	"github.com/nerrad567/touchlink/internal/infrastructure/logging"
	"github.com/nerrad567/touchlink/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting touchlink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Set up the hardware boundary
	touchPin, presencePin, echoPin, err := setupPins(cfg.GPIO, log)
	if err != nil {
		return fmt.Errorf("setting up GPIO: %w", err)
	}

	// Connect to InfluxDB (optional)
	var telemetry agent.Telemetry
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// The session factory: each call opens a fresh broker connection with
	// a newly generated client identity. The agent owns when to call it.
	connect := func() (agent.Session, error) {
		session, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return nil, connErr
		}
		session.SetLogger(log)
		return &sessionAdapter{session: session}, nil
	}

	a, err := agent.New(agent.Options{
		DeviceName:        cfg.Device.Name,
		Topic:             cfg.MQTT.Topic,
		QoS:               byte(cfg.MQTT.QoS),
		Tick:              cfg.Agent.Tick,
		DebounceWindow:    cfg.Agent.DebounceWindow,
		DecayWindow:       cfg.Agent.DecayWindow,
		PulseDuration:     cfg.Agent.PulseDuration,
		HeartbeatInterval: cfg.Agent.HeartbeatInterval,
		MetricsInterval:   cfg.Agent.MetricsInterval,
		RetryDelay:        cfg.RetryDelay(),
		Connect:           connect,
		TouchPin:          touchPin,
		PresencePin:       presencePin,
		EchoPin:           echoPin,
		Logger:            log,
		Telemetry:         telemetry,
	})
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}

	// Run blocks until the context is cancelled; it owns connect, session
	// teardown, and reconnect internally.
	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("running agent: %w", err)
	}

	log.Info("touchlink stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TOUCHLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TOUCHLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// setupPins configures the touch input and the two indicator outputs.
//
// With gpio.enabled false the agent runs on in-memory pins: useful for
// development machines without hardware, where the MQTT side still works.
//
// Returns:
//   - Pins: touch input, presence output, echo output
//   - error: If a real pin cannot be resolved or configured
func setupPins(cfg config.GPIOConfig, log *logging.Logger) (gpio.InputPin, gpio.OutputPin, gpio.OutputPin, error) {
	if !cfg.Enabled {
		log.Warn("GPIO disabled, using in-memory pins")
		return gpio.NewMemoryPin(), gpio.NewMemoryPin(), gpio.NewMemoryPin(), nil
	}

	if err := gpio.Init(); err != nil {
		return nil, nil, nil, err
	}

	touch, err := gpio.NewTouchInput(cfg.TouchPin)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("touch input: %w", err)
	}
	presence, err := gpio.NewLED(cfg.PresencePin)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("presence output: %w", err)
	}
	echo, err := gpio.NewLED(cfg.EchoPin)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("echo output: %w", err)
	}

	log.Info("GPIO configured",
		"touch", cfg.TouchPin,
		"presence", cfg.PresencePin,
		"echo", cfg.EchoPin,
	)
	return touch, presence, echo, nil
}

// sessionAdapter adapts the infrastructure MQTT session to the agent's
// Session interface. The only mismatch is the Subscribe handler parameter:
// the infrastructure session takes its named MessageHandler type while the
// agent interface uses the plain function signature.
type sessionAdapter struct {
	session *mqtt.Session
}

// ClientID implements agent.Session.
func (a *sessionAdapter) ClientID() string {
	return a.session.ClientID()
}

// Publish implements agent.Session.
func (a *sessionAdapter) Publish(topic string, payload []byte, qos byte) error {
	return a.session.Publish(topic, payload, qos)
}

// Subscribe implements agent.Session.
func (a *sessionAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return a.session.Subscribe(topic, qos, mqtt.MessageHandler(handler))
}

// SetOnConnectionLost implements agent.Session.
func (a *sessionAdapter) SetOnConnectionLost(callback func(err error)) {
	a.session.SetOnConnectionLost(callback)
}

// Close implements agent.Session.
func (a *sessionAdapter) Close() error {
	return a.session.Close()
}
