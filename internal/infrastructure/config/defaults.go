package config

import (
	"time"

	"go-socket-hub/internal/infrastructure/hub"
	"go-socket-hub/internal/infrastructure/logger"
)

// Default values for optional configuration fields.
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMetricsPath     = "/metrics"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := newConfig()
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = DefaultIdleTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	applyLogDefaults(&c.Log)

	// Hub defaults
	d := hub.DefaultConfig()
	if c.Hub.ReconnectAttempts == 0 {
		c.Hub.ReconnectAttempts = d.ReconnectAttempts
	}
	if c.Hub.ReconnectInterval == 0 {
		c.Hub.ReconnectInterval = d.ReconnectInterval
	}
	if c.Hub.Heartbeat.Interval == 0 {
		c.Hub.Heartbeat.Interval = d.Heartbeat.Interval
	}
	if c.Hub.Heartbeat.Timeout == 0 {
		c.Hub.Heartbeat.Timeout = d.Heartbeat.Timeout
	}
	if c.Hub.Heartbeat.Message == "" {
		c.Hub.Heartbeat.Message = d.Heartbeat.Message
	}
	if c.Hub.SocketIOPingInterval == 0 {
		c.Hub.SocketIOPingInterval = d.SocketIOPingInterval
	}
	if c.Hub.HandshakeTimeout == 0 {
		c.Hub.HandshakeTimeout = hub.DefaultHandshakeTimeout
	}
	if c.Hub.WriteTimeout == 0 {
		c.Hub.WriteTimeout = hub.DefaultWriteTimeout
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyLogDefaults(l *logger.Config) {
	d := logger.NewDefaultConfig()
	if l.Format == "" {
		l.Format = d.Format
	}
	if l.Output == "" {
		l.Output = d.Output
	}
	if l.MaxSize == 0 {
		l.MaxSize = d.MaxSize
	}
	if l.MaxBackups == 0 {
		l.MaxBackups = d.MaxBackups
	}
	if l.MaxAge == 0 {
		l.MaxAge = d.MaxAge
	}
	if l.Fields == nil {
		l.Fields = make(map[string]string)
	}
	for k, v := range d.Fields {
		if _, ok := l.Fields[k]; !ok {
			l.Fields[k] = v
		}
	}
}
