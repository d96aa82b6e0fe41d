package hub

import (
	"time"

	"github.com/google/uuid"
)

// ReadyState is the connection state an observer sees.
type ReadyState int

const (
	ReadyStateUninstantiated ReadyState = -1
	ReadyStateConnecting     ReadyState = 0
	ReadyStateOpen           ReadyState = 1
	ReadyStateClosing        ReadyState = 2
	ReadyStateClosed         ReadyState = 3
)

func (s ReadyState) String() string {
	switch s {
	case ReadyStateUninstantiated:
		return "uninstantiated"
	case ReadyStateConnecting:
		return "connecting"
	case ReadyStateOpen:
		return "open"
	case ReadyStateClosing:
		return "closing"
	case ReadyStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Close codes used by the hub. Values match RFC 6455.
const (
	CloseNormalClosure   = 1000
	CloseGoingAway       = 1001
	CloseNoStatus        = 1005
	CloseAbnormalClosure = 1006
)

// MessageKind matches the websocket frame opcodes for data frames.
type MessageKind int

const (
	TextMessage   MessageKind = 1
	BinaryMessage MessageKind = 2
)

// Message is one payload delivered by a transport.
type Message struct {
	Kind MessageKind
	Data []byte

	// Event and ID are only set by event-stream transports.
	Event string
	ID    string

	ReceivedAt time.Time
}

// Text returns the payload as a string.
func (m Message) Text() string {
	return string(m.Data)
}

// CloseEvent describes why a connection closed.
type CloseEvent struct {
	Code     int
	Reason   string
	WasClean bool
}

// EnvelopeType identifies downstream frames produced by the gateway.
type EnvelopeType string

const (
	EnvelopeMessage EnvelopeType = "message"
	EnvelopeOpen    EnvelopeType = "open"
	EnvelopeClose   EnvelopeType = "close"
	EnvelopeError   EnvelopeType = "error"
	EnvelopeState   EnvelopeType = "state"
	EnvelopeStopped EnvelopeType = "reconnect_stopped"
)

// Envelope is the JSON frame relayed to downstream clients.
type Envelope struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Endpoint string            `json:"endpoint"`
	Data     any               `json:"data,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// EnvelopeBuilder helps build envelopes with a fluent interface.
type EnvelopeBuilder struct {
	envelope *Envelope
}

func NewEnvelopeBuilder(endpoint string) *EnvelopeBuilder {
	return &EnvelopeBuilder{
		envelope: &Envelope{
			Endpoint: endpoint,
			Headers:  make(map[string]string),
		},
	}
}

func (b *EnvelopeBuilder) WithID(id string) *EnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *EnvelopeBuilder) WithType(t EnvelopeType) *EnvelopeBuilder {
	b.envelope.Type = string(t)
	return b
}

func (b *EnvelopeBuilder) WithData(data any) *EnvelopeBuilder {
	b.envelope.Data = data
	return b
}

func (b *EnvelopeBuilder) WithHeader(key, value string) *EnvelopeBuilder {
	b.envelope.Headers[key] = value
	return b
}

func (b *EnvelopeBuilder) WithTimestamp(ts time.Time) *EnvelopeBuilder {
	return b.WithHeader("timestamp", ts.UTC().Format(time.RFC3339Nano))
}

// Build fills in a random ID and a timestamp when missing.
func (b *EnvelopeBuilder) Build() *Envelope {
	if b.envelope.ID == "" {
		b.envelope.ID = uuid.NewString()
	}
	if _, ok := b.envelope.Headers["timestamp"]; !ok {
		b.WithTimestamp(time.Now())
	}
	return b.envelope
}

// MessageEnvelope wraps an upstream message for downstream delivery.
func MessageEnvelope(endpoint string, msg Message) *Envelope {
	b := NewEnvelopeBuilder(endpoint).
		WithType(EnvelopeMessage).
		WithData(msg.Text())
	if msg.ID != "" {
		b.WithID(msg.ID)
	}
	if msg.Event != "" {
		b.WithHeader("event", msg.Event)
	}
	if msg.Kind == BinaryMessage {
		b.WithHeader("binary", "true")
	}
	if !msg.ReceivedAt.IsZero() {
		b.WithTimestamp(msg.ReceivedAt)
	}
	return b.Build()
}

// StateEnvelope reports a ready-state change downstream.
func StateEnvelope(endpoint string, state ReadyState) *Envelope {
	return NewEnvelopeBuilder(endpoint).
		WithType(EnvelopeState).
		WithData(map[string]any{
			"state": state.String(),
			"code":  int(state),
		}).
		Build()
}

// CloseEnvelope reports an upstream close downstream.
func CloseEnvelope(endpoint string, ev CloseEvent) *Envelope {
	return NewEnvelopeBuilder(endpoint).
		WithType(EnvelopeClose).
		WithData(map[string]any{
			"code":      ev.Code,
			"reason":    ev.Reason,
			"was_clean": ev.WasClean,
		}).
		Build()
}

// ErrorEnvelope reports an upstream error downstream.
func ErrorEnvelope(endpoint string, err error) *Envelope {
	return NewEnvelopeBuilder(endpoint).
		WithType(EnvelopeError).
		WithData(map[string]any{"message": err.Error()}).
		Build()
}
