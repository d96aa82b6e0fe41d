package hub

import (
	"sync"
	"time"
)

// heartbeatMonitor pings a shared connection and closes it when no observer has
// received anything within the timeout.
type heartbeatMonitor struct {
	hub  *Hub
	conn *sharedConn
	opts HeartbeatOptions

	// loop-only
	lastSentAt time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// startHeartbeat must run on the hub loop.
func (h *Hub) startHeartbeat(c *sharedConn) *heartbeatMonitor {
	m := &heartbeatMonitor{
		hub:        h,
		conn:       c,
		opts:       c.heartbeat,
		lastSentAt: time.Now(),
		stopCh:     make(chan struct{}),
	}
	go m.loop(m.opts.checkEvery())
	return m
}

// Stop cancels the monitor. Only the first call has an effect.
func (m *heartbeatMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *heartbeatMonitor) stopped() bool {
	select {
	case <-m.stopCh:
		return true
	default:
		return false
	}
}

func (m *heartbeatMonitor) loop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.hub.post(m.check)
		}
	}
}

// check runs on the hub loop.
func (m *heartbeatMonitor) check() {
	if m.stopped() || m.conn.stale() {
		return
	}

	now := time.Now()
	last := m.hub.lastActivity(m.conn)
	log := m.hub.connLogger(m.conn)

	if !last.Add(m.opts.Timeout).After(now) {
		log.Warnf("Heartbeat timed out, closing connection, last message received %s ago, last ping sent %s ago",
			now.Sub(last).Round(time.Millisecond), now.Sub(m.lastSentAt).Round(time.Millisecond))
		m.Stop()
		m.hub.metrics.HeartbeatTimeout(m.conn.key)
		if err := m.conn.transport.Close(); err != nil {
			log.Debugf("Closing stale transport: %v", err)
		}
		return
	}

	if last.Add(m.opts.Interval).After(now) || m.lastSentAt.Add(m.opts.Interval).After(now) {
		return
	}

	if err := m.conn.transport.Send([]byte(m.opts.Message)); err != nil {
		log.Errorf("Failed to send heartbeat: %v", err)
		m.Stop()
		_ = m.conn.transport.Close()
		return
	}
	m.lastSentAt = now
}

// lastActivity is the newest last-message timestamp among the current observers of c.
func (h *Hub) lastActivity(c *sharedConn) time.Time {
	var newest time.Time
	for _, o := range h.subscribers.list(c.key) {
		if ts := o.LastMessageAt(); ts.After(newest) {
			newest = ts
		}
	}
	return newest
}
