package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-socket-hub/internal/infrastructure/logger"
)

// Environment variable names
const (
	EnvConfig            = "SOCKETHUB_CONFIG"
	EnvAddr              = "SOCKETHUB_ADDR"
	EnvLogLevel          = "SOCKETHUB_LOG_LEVEL"
	EnvLogFormat         = "SOCKETHUB_LOG_FORMAT"
	EnvLogOutput         = "SOCKETHUB_LOG_OUTPUT"
	EnvReconnectAttempts = "SOCKETHUB_RECONNECT_ATTEMPTS"
	EnvReconnectInterval = "SOCKETHUB_RECONNECT_INTERVAL"
	EnvHeartbeatInterval = "SOCKETHUB_HEARTBEAT_INTERVAL"
	EnvHeartbeatTimeout  = "SOCKETHUB_HEARTBEAT_TIMEOUT"
	EnvAllowedHosts      = "SOCKETHUB_ALLOWED_HOSTS"
	EnvMetricsEnabled    = "SOCKETHUB_METRICS_ENABLED"
)

type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields with the SOCKETHUB_* variables that are set.
func (c *Config) applyEnv(lookup lookupFunc) error {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		level, err := logger.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		c.Log.Level = level
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvLogOutput); ok && v != "" {
		c.Log.Output = v
	}

	if v, ok := lookup(EnvReconnectAttempts); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReconnectAttempts, err)
		}
		c.Hub.ReconnectAttempts = n
	}
	if err := durationEnv(lookup, EnvReconnectInterval, &c.Hub.ReconnectInterval); err != nil {
		return err
	}
	if err := durationEnv(lookup, EnvHeartbeatInterval, &c.Hub.Heartbeat.Interval); err != nil {
		return err
	}
	if err := durationEnv(lookup, EnvHeartbeatTimeout, &c.Hub.Heartbeat.Timeout); err != nil {
		return err
	}

	if v, ok := lookup(EnvAllowedHosts); ok && v != "" {
		c.Hub.AllowedHosts = nil
		for _, host := range strings.Split(v, ",") {
			if host = strings.TrimSpace(host); host != "" {
				c.Hub.AllowedHosts = append(c.Hub.AllowedHosts, host)
			}
		}
	}

	if v, ok := lookup(EnvMetricsEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMetricsEnabled, err)
		}
		c.Metrics.Enabled = enabled
	}

	return nil
}

func durationEnv(lookup lookupFunc, key string, dst *time.Duration) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
