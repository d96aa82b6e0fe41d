package hub

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// subscriberRegistry maps endpoint keys to their observers.
//
// Slices are copy-on-write: list returns a snapshot that later mutations never touch,
// so fan-out can iterate it while observers unregister themselves.
type subscriberRegistry struct {
	mu    sync.RWMutex
	byKey map[string][]*Observer
}

func newSubscriberRegistry() *subscriberRegistry {
	return &subscriberRegistry{byKey: make(map[string][]*Observer)}
}

func (r *subscriberRegistry) register(key string, o *Observer) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.byKey[key]
	if slices.Contains(current, o) {
		return len(current)
	}
	next := make([]*Observer, len(current), len(current)+1)
	copy(next, current)
	r.byKey[key] = append(next, o)
	return len(next) + 1
}

// unregister returns the remaining observer count and whether o was present.
func (r *subscriberRegistry) unregister(key string, o *Observer) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.byKey[key]
	idx := slices.Index(current, o)
	if idx < 0 {
		return len(current), false
	}
	if len(current) == 1 {
		delete(r.byKey, key)
		return 0, true
	}
	next := make([]*Observer, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	r.byKey[key] = next
	return len(next), true
}

func (r *subscriberRegistry) list(key string) []*Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byKey[key]
}

func (r *subscriberRegistry) count(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey[key])
}

func (r *subscriberRegistry) keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// reset clears the given keys, or every key when none are given, and returns the removed observers.
func (r *subscriberRegistry) reset(keys ...string) []*Observer {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Observer
	if len(keys) == 0 {
		for _, obs := range r.byKey {
			removed = append(removed, obs...)
		}
		r.byKey = make(map[string][]*Observer)
		return removed
	}

	for _, k := range keys {
		removed = append(removed, r.byKey[k]...)
		delete(r.byKey, k)
	}
	return removed
}

// sharedConn is the single physical connection for an endpoint key.
type sharedConn struct {
	id        string
	key       string
	transport Transport
	state     atomic.Int32

	// loop-only
	detached  bool
	liveness  bool
	heartbeat HeartbeatOptions
	socketIO  bool
	monitor   *heartbeatMonitor
	pinger    *socketIOPinger
}

func newSharedConn(key string, t Transport, opts Options, cfg Config) *sharedConn {
	c := &sharedConn{
		id:        uuid.NewString(),
		key:       key,
		transport: t,
		socketIO:  opts.FromSocketIO,
	}
	if opts.Heartbeat != nil && !t.ReceiveOnly() {
		c.liveness = true
		c.heartbeat = opts.Heartbeat.withDefaults(cfg.Heartbeat)
	}
	c.setState(ReadyStateConnecting)
	return c
}

func (c *sharedConn) readyState() ReadyState {
	return ReadyState(c.state.Load())
}

func (c *sharedConn) setState(s ReadyState) {
	c.state.Store(int32(s))
}

// stopTimers cancels the heartbeat monitor and socket.io pinger. Safe to call repeatedly.
func (c *sharedConn) stopTimers() {
	if c.monitor != nil {
		c.monitor.Stop()
	}
	if c.pinger != nil {
		c.pinger.Stop()
	}
}

// shutdown detaches the connection so its remaining events are ignored, then closes the transport.
func (c *sharedConn) shutdown() error {
	c.detached = true
	c.stopTimers()
	c.setState(ReadyStateClosed)
	return c.transport.Close()
}

// connectionRegistry maps endpoint keys to their single live connection.
type connectionRegistry struct {
	mu    sync.RWMutex
	byKey map[string]*sharedConn
}

func newConnectionRegistry() *connectionRegistry {
	return &connectionRegistry{byKey: make(map[string]*sharedConn)}
}

func (r *connectionRegistry) get(key string) (*sharedConn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byKey[key]
	return c, ok
}

func (r *connectionRegistry) set(key string, c *sharedConn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byKey[key]; ok {
		return fmt.Errorf("%w: %s (connection %s)", ErrConnectionExists, key, existing.id)
	}
	r.byKey[key] = c
	return nil
}

// deleteIf removes key only while it still maps to c.
func (r *connectionRegistry) deleteIf(key string, c *sharedConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byKey[key] != c {
		return false
	}
	delete(r.byKey, key)
	return true
}

func (r *connectionRegistry) keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *connectionRegistry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

// reset shuts down and removes the connections for the given keys, or all of them.
func (r *connectionRegistry) reset(keys ...string) []*sharedConn {
	r.mu.Lock()
	var removed []*sharedConn
	if len(keys) == 0 {
		for _, c := range r.byKey {
			removed = append(removed, c)
		}
		r.byKey = make(map[string]*sharedConn)
	} else {
		for _, k := range keys {
			if c, ok := r.byKey[k]; ok {
				removed = append(removed, c)
				delete(r.byKey, k)
			}
		}
	}
	r.mu.Unlock()

	for _, c := range removed {
		_ = c.shutdown()
	}
	return removed
}
