package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
device:
  name: "kitchen-lamp"
mqtt:
  broker:
    host: "broker.local"
    port: 8883
    tls: true
    keep_alive: 6
  tls:
    cert_file: "certificates/certificate.pem.crt"
    key_file: "certificates/private.pem.key"
  topic: "lamps/touch"
  qos: 1
agent:
  tick: 25ms
  debounce_window: 200ms
  decay_window: 10s
  pulse_duration: 300ms
  heartbeat_interval: 10s
  metrics_interval: 30s
gpio:
  enabled: false
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Name != "kitchen-lamp" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "kitchen-lamp")
	}

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}

	if cfg.MQTT.Topic != "lamps/touch" {
		t.Errorf("MQTT.Topic = %q, want %q", cfg.MQTT.Topic, "lamps/touch")
	}

	if cfg.Agent.DebounceWindow != 200*time.Millisecond {
		t.Errorf("Agent.DebounceWindow = %v, want 200ms", cfg.Agent.DebounceWindow)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// An almost-empty file should still produce a valid config from defaults.
	cfg, err := Load(writeConfig(t, "gpio:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Topic != "touchlink/events" {
		t.Errorf("MQTT.Topic = %q, want default topic", cfg.MQTT.Topic)
	}
	if cfg.Agent.Tick != 25*time.Millisecond {
		t.Errorf("Agent.Tick = %v, want 25ms", cfg.Agent.Tick)
	}
	if cfg.Agent.DecayWindow != 10*time.Second {
		t.Errorf("Agent.DecayWindow = %v, want 10s", cfg.Agent.DecayWindow)
	}
	if cfg.RetryDelay() != 3*time.Second {
		t.Errorf("RetryDelay() = %v, want 3s", cfg.RetryDelay())
	}
	if cfg.KeepAlive() != 6*time.Second {
		t.Errorf("KeepAlive() = %v, want 6s", cfg.KeepAlive())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TOUCHLINK_MQTT_HOST", "env-broker.local")
	t.Setenv("TOUCHLINK_MQTT_TOPIC", "env/topic")
	t.Setenv("TOUCHLINK_MQTT_PORT", "2883")

	cfg, err := Load(writeConfig(t, "mqtt:\n  broker:\n    host: file-broker\ngpio:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Topic != "env/topic" {
		t.Errorf("MQTT.Topic = %q, want env override", cfg.MQTT.Topic)
	}
	if cfg.MQTT.Broker.Port != 2883 {
		t.Errorf("MQTT.Broker.Port = %d, want 2883", cfg.MQTT.Broker.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.GPIO.Enabled = false
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name:    "empty topic",
			mutate:  func(c *Config) { c.MQTT.Topic = "" },
			wantErr: true,
		},
		{
			name:    "wildcard topic",
			mutate:  func(c *Config) { c.MQTT.Topic = "lamps/#" },
			wantErr: true,
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 0 },
			wantErr: true,
		},
		{
			name:    "tls without cert",
			mutate:  func(c *Config) { c.MQTT.Broker.TLS = true },
			wantErr: true,
		},
		{
			name:    "tick longer than debounce",
			mutate:  func(c *Config) { c.Agent.Tick = 500 * time.Millisecond },
			wantErr: true,
		},
		{
			name:    "zero decay window",
			mutate:  func(c *Config) { c.Agent.DecayWindow = 0 },
			wantErr: true,
		},
		{
			name:    "gpio enabled without touch pin",
			mutate:  func(c *Config) { c.GPIO.Enabled = true; c.GPIO.TouchPin = "" },
			wantErr: true,
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.Token = "tok" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
