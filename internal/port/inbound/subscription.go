package inbound

import (
	"time"

	"go-socket-hub/internal/infrastructure/hub"
)

// SubscribeRequest carries the upstream endpoint and the per-client policy knobs.
type SubscribeRequest struct {
	URL       string        `form:"url" json:"url" binding:"required"`
	SocketIO  bool          `form:"socketio" json:"socketio"`
	Heartbeat bool          `form:"heartbeat" json:"heartbeat"`
	Reconnect bool          `form:"reconnect" json:"reconnect"`
	Attempts  int           `form:"attempts" json:"attempts" binding:"gte=0"`
	Interval  time.Duration `form:"interval" json:"interval"`
	Event     string        `form:"event" json:"event"`
}

// SendRequest writes one text frame through a shared upstream connection.
type SendRequest struct {
	URL      string `json:"url" binding:"required"`
	SocketIO bool   `json:"socketio"`
	Message  string `json:"message" binding:"required"`
}

// Subscription is one client's attachment to a shared upstream connection.
type Subscription interface {
	Key() string
	// Active is false once the subscription was released or reset.
	Active() bool
	Send(data []byte) error
	Close() error
}

type Status struct {
	Running     bool `json:"hub_running"`
	Connections int  `json:"connections"`
	Endpoints   int  `json:"endpoints"`
}

type SubscriptionUseCase interface {
	// Subscribe attaches callbacks to the endpoint of req. Policy fields of callbacks
	// are overwritten from req.
	Subscribe(req SubscribeRequest, callbacks hub.Options, sink hub.Sink) (Subscription, error)
	Send(req SendRequest) error
	Endpoints() []hub.EndpointInfo
	// Reset tears down the endpoint of rawURL, or every endpoint when rawURL is empty.
	Reset(rawURL string, socketIO bool) error
	Status() Status
}
