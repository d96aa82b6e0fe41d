package config

import (
	"fmt"
	"os"
	"time"

	"go-socket-hub/internal/infrastructure/hub"
	"go-socket-hub/internal/infrastructure/logger"

	"gopkg.in/yaml.v3"
)

// Config is the complete gateway configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     logger.Config `yaml:"log"`
	Hub     HubConfig     `yaml:"hub"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig controls the downstream HTTP listener.
type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout of zero keeps long-lived streams open.
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HubConfig holds the multiplexer defaults and upstream transport settings.
type HubConfig struct {
	ReconnectAttempts    int                  `yaml:"reconnect_attempts"`
	ReconnectInterval    time.Duration        `yaml:"reconnect_interval"`
	Heartbeat            hub.HeartbeatOptions `yaml:"heartbeat"`
	SocketIOPingInterval time.Duration        `yaml:"socketio_ping_interval"`
	HandshakeTimeout     time.Duration        `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration        `yaml:"write_timeout"`

	// AllowedHosts restricts which upstream hosts clients may attach to. Empty allows any.
	AllowedHosts []string `yaml:"allowed_hosts"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// HubOptions converts the section into hub-wide defaults.
func (c HubConfig) HubOptions() hub.Config {
	return hub.Config{
		ReconnectAttempts:    c.ReconnectAttempts,
		ReconnectInterval:    c.ReconnectInterval,
		Heartbeat:            c.Heartbeat,
		SocketIOPingInterval: c.SocketIOPingInterval,
	}
}

// TransportConfig converts the section into upstream dial settings.
func (c HubConfig) TransportConfig() hub.TransportConfig {
	return hub.TransportConfig{
		HandshakeTimeout: c.HandshakeTimeout,
		WriteTimeout:     c.WriteTimeout,
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := newConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return cfg, nil
}

// newConfig presets the fields whose zero value is meaningful.
func newConfig() *Config {
	return &Config{Log: logger.Config{Level: logger.LevelInfo}}
}

// LoadAndValidate loads path, applies environment overrides and defaults, and validates.
// An empty path starts from defaults only.
func LoadAndValidate(path string) (*Config, error) {
	cfg := newConfig()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
