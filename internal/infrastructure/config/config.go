package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the touchlink agent.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Agent    AgentConfig    `yaml:"agent"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig contains device-specific information.
type DeviceConfig struct {
	// Name is a human-readable label for this device. It appears in log
	// output and telemetry tags; it is NOT the MQTT client identity, which
	// is minted fresh on every connection.
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	TLS       MQTTTLSConfig       `yaml:"tls"`
	Topic     string              `yaml:"topic"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TLS       bool   `yaml:"tls"`
	KeepAlive int    `yaml:"keep_alive"` // seconds
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTTLSConfig contains paths to mutual-TLS credentials.
// Required when broker.tls is true and the broker enforces client
// certificates (AWS IoT Core style endpoints do).
type MQTTTLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// MQTTReconnectConfig contains reconnection settings.
// The agent owns the reconnect cycle: a fixed delay between attempts, each
// attempt with a freshly generated client identity.
type MQTTReconnectConfig struct {
	RetryDelay int `yaml:"retry_delay"` // seconds between connect attempts
}

// AgentConfig contains timing settings for the control loop.
// All values are durations parsed by time.ParseDuration (e.g. "200ms", "10s").
type AgentConfig struct {
	Tick              time.Duration `yaml:"tick"`
	DebounceWindow    time.Duration `yaml:"debounce_window"`
	DecayWindow       time.Duration `yaml:"decay_window"`
	PulseDuration     time.Duration `yaml:"pulse_duration"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	MetricsInterval   time.Duration `yaml:"metrics_interval"`
}

// GPIOConfig contains pin assignments for the hardware boundary.
// Pin names follow periph.io conventions (e.g. "GPIO17").
type GPIOConfig struct {
	// Enabled selects real pins. When false the agent runs with in-memory
	// pins, useful for development off-device.
	Enabled bool `yaml:"enabled"`

	// TouchPin is the digital input connected to the touch sensor.
	TouchPin string `yaml:"touch_pin"`

	// PresencePin is the output indicating recent peer activity.
	PresencePin string `yaml:"presence_pin"`

	// EchoPin is the output pulsed to confirm this device's own touches.
	EchoPin string `yaml:"echo_pin"`
}

// InfluxDBConfig contains InfluxDB connection settings for telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TOUCHLINK_SECTION_KEY
// For example: TOUCHLINK_MQTT_HOST, TOUCHLINK_MQTT_TOPIC
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Name: "touchlink",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:      "localhost",
				Port:      1883,
				KeepAlive: 6,
			},
			Topic: "touchlink/events",
			QoS:   1,
			Reconnect: MQTTReconnectConfig{
				RetryDelay: 3,
			},
		},
		Agent: AgentConfig{
			Tick:              25 * time.Millisecond,
			DebounceWindow:    200 * time.Millisecond,
			DecayWindow:       10 * time.Second,
			PulseDuration:     300 * time.Millisecond,
			HeartbeatInterval: 10 * time.Second,
			MetricsInterval:   30 * time.Second,
		},
		GPIO: GPIOConfig{
			Enabled:     true,
			TouchPin:    "GPIO17",
			PresencePin: "GPIO27",
			EchoPin:     "GPIO22",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TOUCHLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("TOUCHLINK_DEVICE_NAME"); v != "" {
		cfg.Device.Name = v
	}

	// MQTT
	if v := os.Getenv("TOUCHLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TOUCHLINK_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("TOUCHLINK_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}
	if v := os.Getenv("TOUCHLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TOUCHLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("TOUCHLINK_MQTT_CERT_FILE"); v != "" {
		cfg.MQTT.TLS.CertFile = v
	}
	if v := os.Getenv("TOUCHLINK_MQTT_KEY_FILE"); v != "" {
		cfg.MQTT.TLS.KeyFile = v
	}
	if v := os.Getenv("TOUCHLINK_MQTT_CA_FILE"); v != "" {
		cfg.MQTT.TLS.CAFile = v
	}

	// InfluxDB
	if v := os.Getenv("TOUCHLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	}
	if strings.ContainsAny(c.MQTT.Topic, "+#") {
		errs = append(errs, "mqtt.topic must not contain wildcards")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.KeepAlive < 1 {
		errs = append(errs, "mqtt.broker.keep_alive must be at least 1 second")
	}
	if c.MQTT.Reconnect.RetryDelay < 1 {
		errs = append(errs, "mqtt.reconnect.retry_delay must be at least 1 second")
	}

	// mTLS validation: a TLS broker endpoint needs client credentials
	if c.MQTT.Broker.TLS {
		if c.MQTT.TLS.CertFile == "" {
			errs = append(errs, "mqtt.tls.cert_file is required when mqtt.broker.tls is true")
		}
		if c.MQTT.TLS.KeyFile == "" {
			errs = append(errs, "mqtt.tls.key_file is required when mqtt.broker.tls is true")
		}
	}

	// Agent timing validation
	if c.Agent.Tick <= 0 {
		errs = append(errs, "agent.tick must be positive")
	}
	if c.Agent.DebounceWindow <= 0 {
		errs = append(errs, "agent.debounce_window must be positive")
	}
	if c.Agent.Tick > 0 && c.Agent.DebounceWindow > 0 && c.Agent.Tick >= c.Agent.DebounceWindow {
		// A tick at or above the debounce window makes the refractory
		// period meaningless and can miss short touch pulses.
		errs = append(errs, "agent.tick must be shorter than agent.debounce_window")
	}
	if c.Agent.DecayWindow <= 0 {
		errs = append(errs, "agent.decay_window must be positive")
	}
	if c.Agent.PulseDuration <= 0 {
		errs = append(errs, "agent.pulse_duration must be positive")
	}
	if c.Agent.HeartbeatInterval <= 0 {
		errs = append(errs, "agent.heartbeat_interval must be positive")
	}
	if c.Agent.MetricsInterval <= 0 {
		errs = append(errs, "agent.metrics_interval must be positive")
	}

	// GPIO validation (only when real pins are in use)
	if c.GPIO.Enabled {
		if c.GPIO.TouchPin == "" {
			errs = append(errs, "gpio.touch_pin is required when gpio.enabled is true")
		}
		if c.GPIO.PresencePin == "" {
			errs = append(errs, "gpio.presence_pin is required when gpio.enabled is true")
		}
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb.enabled is true")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required (set TOUCHLINK_INFLUXDB_TOKEN environment variable)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// RetryDelay returns the reconnect retry delay as a Duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.MQTT.Reconnect.RetryDelay) * time.Second
}

// KeepAlive returns the MQTT keep-alive interval as a Duration.
func (c *Config) KeepAlive() time.Duration {
	return time.Duration(c.MQTT.Broker.KeepAlive) * time.Second
}
