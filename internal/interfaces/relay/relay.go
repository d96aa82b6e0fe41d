package relay

import (
	"sync/atomic"

	"go-socket-hub/internal/infrastructure/hub"
	"go-socket-hub/internal/infrastructure/logger"
)

const DefaultBufferSize = 256

// Event is one hub notification waiting to be written to a downstream client.
type Event struct {
	Type    hub.EnvelopeType
	Message hub.Message
	State   hub.ReadyState
	Close   hub.CloseEvent
	Err     error
	Limit   int
}

// Envelope renders the event for endpoint.
func (e Event) Envelope(endpoint string) *hub.Envelope {
	switch e.Type {
	case hub.EnvelopeMessage:
		return hub.MessageEnvelope(endpoint, e.Message)
	case hub.EnvelopeState:
		return hub.StateEnvelope(endpoint, e.State)
	case hub.EnvelopeClose:
		return hub.CloseEnvelope(endpoint, e.Close)
	case hub.EnvelopeError:
		return hub.ErrorEnvelope(endpoint, e.Err)
	case hub.EnvelopeStopped:
		return hub.NewEnvelopeBuilder(endpoint).
			WithType(hub.EnvelopeStopped).
			WithData(map[string]any{"attempts": e.Limit}).
			Build()
	default:
		return hub.NewEnvelopeBuilder(endpoint).WithType(e.Type).Build()
	}
}

// Relay buffers hub callbacks for one downstream client. Hub callbacks run on the
// hub loop, so pushes never block: when the buffer is full the event is dropped.
type Relay struct {
	events  chan Event
	dropped atomic.Int64
	logger  logger.Logger
}

var _ hub.Sink = (*Relay)(nil)

func New(size int, log logger.Logger) *Relay {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Relay{
		events: make(chan Event, size),
		logger: log,
	}
}

// Options returns the lifecycle callbacks that feed the relay. Messages arrive
// through the Sink side so observer filters apply.
func (r *Relay) Options() hub.Options {
	return hub.Options{
		OnOpen: func() {
			r.push(Event{Type: hub.EnvelopeOpen})
		},
		OnClose: func(ev hub.CloseEvent) {
			r.push(Event{Type: hub.EnvelopeClose, Close: ev})
		},
		OnError: func(err error) {
			r.push(Event{Type: hub.EnvelopeError, Err: err})
		},
		OnReconnectStop: func(limit int) {
			r.push(Event{Type: hub.EnvelopeStopped, Limit: limit})
		},
	}
}

func (r *Relay) SetLastMessage(msg hub.Message) {
	r.push(Event{Type: hub.EnvelopeMessage, Message: msg})
}

func (r *Relay) SetReadyState(state hub.ReadyState) {
	r.push(Event{Type: hub.EnvelopeState, State: state})
}

// Report queues a locally raised error for the client.
func (r *Relay) Report(err error) {
	r.push(Event{Type: hub.EnvelopeError, Err: err})
}

func (r *Relay) Events() <-chan Event {
	return r.events
}

// Dropped returns how many events were discarded because the client fell behind.
func (r *Relay) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Relay) push(ev Event) {
	select {
	case r.events <- ev:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.logger.Warnf("Downstream client is slow, %d events dropped", n)
		}
	}
}

// Terminal reports whether the stream should end after ev has been written.
// A close ends it unless the client asked for reconnects; a closed state ends it once
// the subscription was torn down.
func Terminal(ev Event, reconnect bool, active bool) bool {
	switch ev.Type {
	case hub.EnvelopeStopped:
		return true
	case hub.EnvelopeClose:
		return !reconnect
	case hub.EnvelopeState:
		return ev.State == hub.ReadyStateClosed && !active
	}
	return false
}
