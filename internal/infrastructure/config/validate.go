package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return errors.New("server timeouts must be >= 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be > 0")
	}

	if err := c.Log.Validate(); err != nil {
		return err
	}

	if c.Hub.ReconnectAttempts < 1 {
		return fmt.Errorf("hub.reconnect_attempts must be >= 1, got %d", c.Hub.ReconnectAttempts)
	}
	if c.Hub.ReconnectInterval < 0 {
		return errors.New("hub.reconnect_interval must be >= 0")
	}
	if c.Hub.Heartbeat.Interval <= 0 {
		return errors.New("hub.heartbeat.interval must be > 0")
	}
	if c.Hub.Heartbeat.Timeout < c.Hub.Heartbeat.Interval {
		return fmt.Errorf("hub.heartbeat.timeout (%s) cannot be shorter than hub.heartbeat.interval (%s)",
			c.Hub.Heartbeat.Timeout, c.Hub.Heartbeat.Interval)
	}
	if c.Hub.Heartbeat.CheckInterval < 0 {
		return errors.New("hub.heartbeat.check_interval must be >= 0")
	}
	for i, host := range c.Hub.AllowedHosts {
		if strings.TrimSpace(host) == "" {
			return fmt.Errorf("hub.allowed_hosts[%d] is empty", i)
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	return nil
}
