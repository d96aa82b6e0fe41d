package hub

import "time"

// Options is the per-observer configuration. The hub reads a fresh copy on every
// event, so SetOptions takes effect from the next event on.
type Options struct {
	OnOpen    func()
	OnClose   func(CloseEvent)
	OnMessage func(Message)
	OnError   func(error)

	// Filter returning false keeps a message out of the observer's last-message slot.
	// OnMessage still fires.
	Filter func(Message) bool

	// ShouldReconnect decides per close event whether this observer reconnects.
	// Nil means never.
	ShouldReconnect func(CloseEvent) bool

	// ReconnectAttempts caps reconnects since the last successful open. Zero uses the hub default.
	ReconnectAttempts int

	// ReconnectInterval is the fixed delay before a reconnect. Zero uses the hub default.
	ReconnectInterval time.Duration

	// ReconnectBackoff, when set, overrides ReconnectInterval with a delay computed
	// from the current attempt count.
	ReconnectBackoff func(attempt int) time.Duration

	// OnReconnectStop fires with the attempt limit once reconnects are exhausted.
	OnReconnectStop func(limit int)

	// Heartbeat enables liveness probing. Zero fields take hub defaults.
	Heartbeat *HeartbeatOptions

	// FromSocketIO sends Socket.IO ping frames while the connection is open.
	FromSocketIO bool
}

// HeartbeatOptions configure the liveness monitor of a connection.
type HeartbeatOptions struct {
	Interval      time.Duration `yaml:"interval"`
	Timeout       time.Duration `yaml:"timeout"`
	Message       string        `yaml:"message"`
	ReturnMessage string        `yaml:"return_message"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

const (
	DefaultReconnectAttempts    = 20
	DefaultReconnectInterval    = 5 * time.Second
	DefaultHeartbeatInterval    = 25 * time.Second
	DefaultHeartbeatTimeout     = 60 * time.Second
	DefaultHeartbeatMessage     = "ping"
	DefaultSocketIOPingInterval = 25 * time.Second
	DefaultSocketIOPingMessage  = "2"

	minHeartbeatCheckInterval = 100 * time.Millisecond
)

// withDefaults fills zero fields from d.
func (o HeartbeatOptions) withDefaults(d HeartbeatOptions) HeartbeatOptions {
	if o.Interval <= 0 {
		o.Interval = d.Interval
	}
	if o.Interval <= 0 {
		o.Interval = DefaultHeartbeatInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultHeartbeatTimeout
	}
	if o.Message == "" {
		o.Message = d.Message
	}
	if o.Message == "" {
		o.Message = DefaultHeartbeatMessage
	}
	if o.ReturnMessage == "" {
		o.ReturnMessage = d.ReturnMessage
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = d.CheckInterval
	}
	return o
}

// checkEvery is the grace period between liveness checks. Unless configured it
// scales with the heartbeat interval.
func (o HeartbeatOptions) checkEvery() time.Duration {
	if o.CheckInterval > 0 {
		return o.CheckInterval
	}
	return max(minHeartbeatCheckInterval, o.Interval/10)
}

// Config holds hub-wide defaults.
type Config struct {
	ReconnectAttempts    int              `yaml:"reconnect_attempts"`
	ReconnectInterval    time.Duration    `yaml:"reconnect_interval"`
	Heartbeat            HeartbeatOptions `yaml:"heartbeat"`
	SocketIOPingInterval time.Duration    `yaml:"socketio_ping_interval"`
	SocketIOPingMessage  string           `yaml:"socketio_ping_message"`
}

func DefaultConfig() Config {
	return Config{
		ReconnectAttempts: DefaultReconnectAttempts,
		ReconnectInterval: DefaultReconnectInterval,
		Heartbeat: HeartbeatOptions{
			Interval: DefaultHeartbeatInterval,
			Timeout:  DefaultHeartbeatTimeout,
			Message:  DefaultHeartbeatMessage,
		},
		SocketIOPingInterval: DefaultSocketIOPingInterval,
		SocketIOPingMessage:  DefaultSocketIOPingMessage,
	}
}

// Option configures a Hub.
type Option func(*Hub)

func WithConfig(cfg Config) Option {
	return func(h *Hub) {
		d := DefaultConfig()
		if cfg.ReconnectAttempts <= 0 {
			cfg.ReconnectAttempts = d.ReconnectAttempts
		}
		if cfg.ReconnectInterval <= 0 {
			cfg.ReconnectInterval = d.ReconnectInterval
		}
		if cfg.SocketIOPingInterval <= 0 {
			cfg.SocketIOPingInterval = d.SocketIOPingInterval
		}
		if cfg.SocketIOPingMessage == "" {
			cfg.SocketIOPingMessage = d.SocketIOPingMessage
		}
		cfg.Heartbeat = cfg.Heartbeat.withDefaults(d.Heartbeat)
		h.cfg = cfg
	}
}

func WithMetrics(m Metrics) Option {
	return func(h *Hub) {
		if m != nil {
			h.metrics = m
		}
	}
}
