package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Observer is one logical subscription to an endpoint.
//
// The hub loop owns every write; callers read through the accessors from any goroutine.
type Observer struct {
	id   string
	key  string
	hub  *Hub
	sink Sink

	mu             sync.RWMutex
	opts           Options
	lastMessage    *Message
	readyState     ReadyState
	reconnectCount int
	lastMessageAt  time.Time
	registered     bool

	// loop-only
	reconnectTimer *time.Timer
	reconnectGen   uint64
	reconnect      func()
}

func newObserver(h *Hub, key string, opts Options, sink Sink) *Observer {
	return &Observer{
		id:         uuid.NewString(),
		key:        key,
		hub:        h,
		sink:       sink,
		opts:       opts,
		readyState: ReadyStateUninstantiated,
	}
}

func (o *Observer) ID() string  { return o.id }
func (o *Observer) Key() string { return o.key }

// Options returns a copy of the current configuration.
func (o *Observer) Options() Options {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.opts
}

// SetOptions replaces the configuration used for subsequent events.
func (o *Observer) SetOptions(opts Options) {
	o.mu.Lock()
	o.opts = opts
	o.mu.Unlock()
}

// LastMessage returns the last stored message, if any.
func (o *Observer) LastMessage() (Message, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.lastMessage == nil {
		return Message{}, false
	}
	return *o.lastMessage, true
}

func (o *Observer) ReadyState() ReadyState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.readyState
}

// ReconnectCount is the number of reconnects since the last successful open.
func (o *Observer) ReconnectCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.reconnectCount
}

// LastMessageAt is zero unless liveness detection is active on the connection.
func (o *Observer) LastMessageAt() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastMessageAt
}

// Registered reports whether the observer still receives fan-out.
func (o *Observer) Registered() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.registered
}

// Send writes through the observer's shared connection.
func (o *Observer) Send(data []byte) error {
	return o.hub.Send(o.key, data)
}

func (o *Observer) setRegistered(v bool) {
	o.mu.Lock()
	o.registered = v
	o.mu.Unlock()
}

func (o *Observer) storeMessage(msg Message) {
	o.mu.Lock()
	o.lastMessage = &msg
	o.mu.Unlock()

	if o.sink != nil {
		o.sink.SetLastMessage(msg)
	}
}

func (o *Observer) setReadyState(state ReadyState) {
	o.mu.Lock()
	changed := o.readyState != state
	o.readyState = state
	o.mu.Unlock()

	if changed && o.sink != nil {
		o.sink.SetReadyState(state)
	}
}

// teardown unregisters o and reports CLOSED to the sink even when the slot already holds it.
func (o *Observer) teardown() {
	o.cancelReconnect()

	o.mu.Lock()
	o.registered = false
	o.readyState = ReadyStateClosed
	o.mu.Unlock()

	if o.sink != nil {
		o.sink.SetReadyState(ReadyStateClosed)
	}
}

func (o *Observer) touch(now time.Time) {
	o.mu.Lock()
	o.lastMessageAt = now
	o.mu.Unlock()
}

func (o *Observer) resetReconnectCount() {
	o.mu.Lock()
	o.reconnectCount = 0
	o.mu.Unlock()
}

func (o *Observer) incrementReconnectCount() {
	o.mu.Lock()
	o.reconnectCount++
	o.mu.Unlock()
}

// cancelReconnect stops a pending reconnect timer and invalidates any firing already queued.
func (o *Observer) cancelReconnect() {
	if o.reconnectTimer != nil {
		o.reconnectTimer.Stop()
		o.reconnectTimer = nil
	}
	o.reconnectGen++
}
