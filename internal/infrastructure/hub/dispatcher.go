package hub

import (
	"fmt"
	"time"

	"go-socket-hub/internal/infrastructure/logger"
)

// bind returns the transport callbacks for c. Each one only queues the event on the hub loop.
func (h *Hub) bind(c *sharedConn) Handlers {
	return Handlers{
		OnOpen: func() {
			h.post(func() { h.handleOpen(c) })
		},
		OnMessage: func(msg Message) {
			if msg.ReceivedAt.IsZero() {
				msg.ReceivedAt = time.Now()
			}
			h.post(func() { h.handleMessage(c, msg) })
		},
		OnError: func(err error) {
			h.post(func() { h.handleError(c, err) })
		},
		OnClose: func(ev CloseEvent) {
			h.post(func() { h.handleClose(c, ev) })
		},
	}
}

// stale reports whether c can no longer deliver events to observers.
func (c *sharedConn) stale() bool {
	return c.detached || c.readyState() == ReadyStateClosed
}

func (h *Hub) handleMessage(c *sharedConn, msg Message) {
	if c.stale() {
		return
	}

	observers := h.subscribers.list(c.key)
	for _, o := range observers {
		opts := o.Options()

		if opts.OnMessage != nil {
			h.safely(o, "onMessage", func() { opts.OnMessage(msg) })
		}

		if c.liveness {
			o.touch(msg.ReceivedAt)
		}

		if opts.Filter != nil {
			keep := false
			h.safely(o, "filter", func() { keep = opts.Filter(msg) })
			if !keep {
				continue
			}
		}

		if c.liveness && c.heartbeat.ReturnMessage != "" && msg.Text() == c.heartbeat.ReturnMessage {
			continue
		}

		o.storeMessage(msg)
	}

	h.metrics.MessageDispatched(c.key, len(observers))
}

func (h *Hub) handleOpen(c *sharedConn) {
	if c.stale() {
		return
	}

	now := time.Now()
	c.setState(ReadyStateOpen)

	for _, o := range h.subscribers.list(c.key) {
		o.resetReconnectCount()

		opts := o.Options()
		if opts.OnOpen != nil {
			h.safely(o, "onOpen", opts.OnOpen)
		}

		o.setReadyState(ReadyStateOpen)

		if c.liveness {
			o.touch(now)
		}
	}

	if c.liveness {
		c.monitor = h.startHeartbeat(c)
	}
	if c.socketIO {
		c.pinger = h.startSocketIOPing(c)
	}

	h.metrics.ConnectionOpened(c.key)
	h.connLogger(c).Info("Shared connection open")
}

func (h *Hub) handleClose(c *sharedConn, ev CloseEvent) {
	if c.stale() {
		return
	}

	c.setState(ReadyStateClosed)
	c.stopTimers()

	for _, o := range h.subscribers.list(c.key) {
		opts := o.Options()
		if opts.OnClose != nil {
			h.safely(o, "onClose", func() { opts.OnClose(ev) })
		}
		o.setReadyState(ReadyStateClosed)
	}

	h.connections.deleteIf(c.key, c)
	c.detached = true
	h.metrics.ConnectionClosed(c.key, ev.Code)

	h.connLogger(c).WithFields(logger.Fields{
		"code":      ev.Code,
		"reason":    ev.Reason,
		"was_clean": ev.WasClean,
	}).Info("Shared connection closed")

	// Registry removal is complete before any reconnect can run: timers only post to this loop.
	for _, o := range h.subscribers.list(c.key) {
		h.scheduleReconnect(o, ev)
	}
}

func (h *Hub) handleError(c *sharedConn, err error) {
	if c.stale() {
		return
	}

	for _, o := range h.subscribers.list(c.key) {
		opts := o.Options()
		if opts.OnError != nil {
			h.safely(o, "onError", func() { opts.OnError(err) })
		}
	}

	h.connLogger(c).Warnf("Transport error: %v", err)

	if !c.transport.ReceiveOnly() {
		return
	}

	// Receive-only channels have no close signal; the error ends this connection instance.
	h.handleClose(c, CloseEvent{
		Code:     CloseAbnormalClosure,
		Reason:   fmt.Sprintf("an error occurred with the event stream: %v", err),
		WasClean: false,
	})
	if cerr := c.transport.Close(); cerr != nil {
		h.connLogger(c).Debugf("Closing receive-only transport: %v", cerr)
	}
}

// scheduleReconnect applies o's reconnect policy to a close event.
func (h *Hub) scheduleReconnect(o *Observer, ev CloseEvent) {
	opts := o.Options()
	if opts.ShouldReconnect == nil {
		return
	}

	should := false
	h.safely(o, "shouldReconnect", func() { should = opts.ShouldReconnect(ev) })
	if !should {
		return
	}

	limit := opts.ReconnectAttempts
	if limit <= 0 {
		limit = h.cfg.ReconnectAttempts
	}

	attempt := o.ReconnectCount()
	if attempt >= limit {
		if opts.OnReconnectStop != nil {
			h.safely(o, "onReconnectStop", func() { opts.OnReconnectStop(limit) })
		}
		h.metrics.ReconnectExhausted(o.key)
		h.logger.WithFields(logger.Fields{
			"endpoint":    o.key,
			"observer_id": o.id,
		}).Warnf("Max reconnect attempts of %d exceeded", limit)
		return
	}

	delay := h.reconnectDelay(o, opts, attempt)

	o.cancelReconnect()
	gen := o.reconnectGen
	o.reconnectTimer = time.AfterFunc(delay, func() {
		h.post(func() { h.fireReconnect(o, gen) })
	})
	h.metrics.ReconnectScheduled(o.key)

	h.logger.WithFields(logger.Fields{
		"endpoint":    o.key,
		"observer_id": o.id,
		"attempt":     attempt + 1,
		"limit":       limit,
	}).Debugf("Reconnect scheduled in %s", delay)
}

func (h *Hub) reconnectDelay(o *Observer, opts Options, attempt int) time.Duration {
	if opts.ReconnectBackoff != nil {
		var d time.Duration
		if h.safely(o, "reconnectBackoff", func() { d = opts.ReconnectBackoff(attempt) }) && d >= 0 {
			return d
		}
	}
	if opts.ReconnectInterval > 0 {
		return opts.ReconnectInterval
	}
	return h.cfg.ReconnectInterval
}

func (h *Hub) fireReconnect(o *Observer, gen uint64) {
	if gen != o.reconnectGen || !o.Registered() {
		return
	}
	o.reconnectTimer = nil
	o.incrementReconnectCount()
	o.reconnect()
}

func (h *Hub) connLogger(c *sharedConn) logger.Logger {
	return h.logger.WithFields(logger.Fields{
		"endpoint":      c.key,
		"connection_id": c.id,
	})
}
