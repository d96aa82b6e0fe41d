package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-socket-hub/internal/infrastructure/logger"
)

// Hub shares one physical connection per endpoint key among any number of observers.
//
// All registry mutations, transport events and timer callbacks run one at a time on the
// hub loop. Public mutators only enqueue work, so they may be called from inside observer
// callbacks.
type Hub struct {
	subscribers *subscriberRegistry
	connections *connectionRegistry

	factory Factory
	cfg     Config
	metrics Metrics
	logger  logger.Logger

	running   bool
	runningMu sync.RWMutex

	queueMu sync.Mutex
	queue   []func()
	wake    chan struct{}

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// EndpointInfo is a point-in-time view of one endpoint.
type EndpointInfo struct {
	Key          string `json:"key"`
	Observers    int    `json:"observers"`
	ConnectionID string `json:"connection_id,omitempty"`
	State        string `json:"state"`
	ReceiveOnly  bool   `json:"receive_only"`
	Heartbeat    bool   `json:"heartbeat"`
}

// New creates a new Hub instance
func New(log logger.Logger, factory Factory, opts ...Option) *Hub {
	h := &Hub{
		subscribers: newSubscriberRegistry(),
		connections: newConnectionRegistry(),
		factory:     factory,
		metrics:     nopMetrics{},
		logger:      log.WithField("component", "hub"),
		wake:        make(chan struct{}, 1),
	}
	WithConfig(DefaultConfig())(h)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start starts the hub loop.
func (h *Hub) Start(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return ErrAlreadyRunning
	}

	h.ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	h.running = true

	go h.run()

	h.logger.Info("Hub started successfully")
	return nil
}

// Stop tears down every endpoint and stops the loop.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	if !h.running {
		h.runningMu.Unlock()
		return nil
	}
	h.running = false
	h.runningMu.Unlock()

	h.post(func() { h.resetEndpoints() })
	if err := h.waitQueued(ctx); err != nil {
		h.logger.Warnf("Hub stop did not drain in time: %v", err)
	}

	h.cancel()

	select {
	case <-h.done:
	case <-ctx.Done():
		return fmt.Errorf("stop hub: %w", ctx.Err())
	}

	h.logger.Info("Hub stopped successfully")
	return nil
}

// IsRunning returns true if the hub is currently running
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// Subscribe registers a new observer for key and creates the shared connection if none exists.
// sink may be nil.
func (h *Hub) Subscribe(key string, opts Options, sink Sink) (*Observer, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if !h.IsRunning() {
		return nil, ErrNotRunning
	}

	o := newObserver(h, key, opts, sink)
	h.post(func() { h.handleSubscribe(o) })
	return o, nil
}

// Unsubscribe removes o from fan-out and cancels its pending reconnect.
// The shared connection stays open even if o was the last observer.
func (h *Hub) Unsubscribe(o *Observer) error {
	if o.hub != h {
		return ErrObserverNotTracked
	}
	h.post(func() { h.handleUnsubscribe(o, false) })
	return nil
}

// Release unsubscribes o and closes the shared connection when no observers remain.
func (h *Hub) Release(o *Observer) error {
	if o.hub != h {
		return ErrObserverNotTracked
	}
	h.post(func() { h.handleUnsubscribe(o, true) })
	return nil
}

// Reset clears observers and closes connections for the given keys, or for every
// endpoint when called without keys.
func (h *Hub) Reset(keys ...string) {
	h.post(func() { h.resetEndpoints(keys...) })
}

// Send writes data through the shared connection of key.
func (h *Hub) Send(key string, data []byte) error {
	c, ok := h.connections.get(key)
	if !ok || c.readyState() != ReadyStateOpen {
		return fmt.Errorf("send to %s: %w", key, ErrNotConnected)
	}
	if c.transport.ReceiveOnly() {
		return fmt.Errorf("send to %s: %w", key, ErrReceiveOnly)
	}
	if err := c.transport.Send(data); err != nil {
		return fmt.Errorf("send to %s: %w", key, err)
	}
	return nil
}

// Sync blocks until every event queued before the call has been dispatched.
// It must not be called from observer callbacks.
func (h *Hub) Sync(ctx context.Context) error {
	if !h.IsRunning() {
		return ErrNotRunning
	}
	return h.waitQueued(ctx)
}

// ConnectionCount returns the number of live shared connections.
func (h *Hub) ConnectionCount() int {
	return h.connections.size()
}

// ObserverCount returns the number of observers registered for key.
func (h *Hub) ObserverCount(key string) int {
	return h.subscribers.count(key)
}

// Endpoints lists every endpoint with observers or a live connection.
func (h *Hub) Endpoints() []EndpointInfo {
	seen := make(map[string]bool)
	var infos []EndpointInfo

	add := func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true
		info := EndpointInfo{
			Key:       key,
			Observers: h.subscribers.count(key),
			State:     ReadyStateClosed.String(),
		}
		if c, ok := h.connections.get(key); ok {
			info.ConnectionID = c.id
			info.State = c.readyState().String()
			info.ReceiveOnly = c.transport.ReceiveOnly()
			info.Heartbeat = c.liveness
		}
		infos = append(infos, info)
	}

	for _, key := range h.subscribers.keys() {
		add(key)
	}
	for _, key := range h.connections.keys() {
		add(key)
	}
	return infos
}

// post appends fn to the loop queue. It never blocks.
func (h *Hub) post(fn func()) {
	h.queueMu.Lock()
	h.queue = append(h.queue, fn)
	h.queueMu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Hub) waitQueued(ctx context.Context) error {
	done := make(chan struct{})
	h.post(func() { close(done) })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrNotRunning
	}
}

func (h *Hub) drain() []func() {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	batch := h.queue
	h.queue = nil
	return batch
}

// run is the hub loop. Work is processed strictly in the order it was posted.
func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.wake:
			for batch := h.drain(); len(batch) > 0; batch = h.drain() {
				for _, fn := range batch {
					fn()
				}
			}

		case <-h.ctx.Done():
			h.logger.Info("Hub run loop stopped")
			return
		}
	}
}

// handleSubscribe processes observer registration
func (h *Hub) handleSubscribe(o *Observer) {
	count := h.subscribers.register(o.key, o)
	o.setRegistered(true)
	o.reconnect = func() { h.connect(o) }
	h.metrics.ObserversChanged(o.key, count)

	h.logger.WithFields(logger.Fields{
		"endpoint":    o.key,
		"observer_id": o.id,
	}).Debugf("Observer registered (%d on endpoint)", count)

	h.connect(o)
}

// connect joins the existing shared connection for o's key or creates one.
func (h *Hub) connect(o *Observer) {
	if !o.Registered() {
		return
	}

	if c, ok := h.connections.get(o.key); ok {
		state := c.readyState()
		o.setReadyState(state)
		if state == ReadyStateOpen && c.liveness {
			o.touch(time.Now())
		}
		return
	}

	t, err := h.factory(o.key)
	if err != nil {
		h.logger.Errorf("Failed to create transport for %s: %v", o.key, err)
		opts := o.Options()
		if opts.OnError != nil {
			h.safely(o, "onError", func() { opts.OnError(err) })
		}
		o.setReadyState(ReadyStateClosed)
		return
	}

	c := newSharedConn(o.key, t, o.Options(), h.cfg)
	if err := h.connections.set(o.key, c); err != nil {
		// unreachable while all mutations run on the loop
		h.logger.Errorf("Invalid registry state: %v", err)
		_ = t.Close()
		return
	}

	o.setReadyState(ReadyStateConnecting)
	h.logger.WithFields(logger.Fields{
		"endpoint":      o.key,
		"connection_id": c.id,
		"receive_only":  t.ReceiveOnly(),
	}).Info("Opening shared connection")

	t.Open(h.bind(c))
}

// handleUnsubscribe removes o; with release it also closes an orphaned connection.
func (h *Hub) handleUnsubscribe(o *Observer, release bool) {
	o.cancelReconnect()
	remaining, ok := h.subscribers.unregister(o.key, o)
	o.setRegistered(false)
	if !ok {
		return
	}
	h.metrics.ObserversChanged(o.key, remaining)

	h.logger.WithFields(logger.Fields{
		"endpoint":    o.key,
		"observer_id": o.id,
	}).Debugf("Observer unregistered (%d remaining)", remaining)

	if !release || remaining > 0 {
		return
	}

	c, ok := h.connections.get(o.key)
	if !ok {
		return
	}
	h.connections.deleteIf(o.key, c)
	if err := c.shutdown(); err != nil {
		h.logger.Warnf("Failed to close connection %s: %v", c.id, err)
	}
	h.metrics.ConnectionClosed(o.key, CloseNormalClosure)
	h.metrics.ForgetEndpoint(o.key)
	h.logger.Infof("Released last observer of %s, connection %s closed", o.key, c.id)
}

// resetEndpoints is the teardown path behind Reset and Stop.
func (h *Hub) resetEndpoints(keys ...string) {
	for _, o := range h.subscribers.reset(keys...) {
		o.teardown()
	}
	for _, c := range h.connections.reset(keys...) {
		h.metrics.ConnectionClosed(c.key, CloseNormalClosure)
		h.logger.Infof("Reset closed connection %s for %s", c.id, c.key)
	}

	if len(keys) == 0 {
		h.logger.Info("Reset all endpoints")
		return
	}
	for _, k := range keys {
		h.metrics.ForgetEndpoint(k)
	}
}

// safely runs an observer callback; a panic is logged and does not abort fan-out.
func (h *Hub) safely(o *Observer, name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithFields(logger.Fields{
				"endpoint":    o.key,
				"observer_id": o.id,
				"callback":    name,
			}).Errorf("Observer callback panicked: %v", r)
			ok = false
		}
	}()
	fn()
	return true
}
