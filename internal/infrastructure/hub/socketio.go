package hub

import (
	"strings"
	"sync"
	"time"
)

// socketIOPinger keeps an Engine.IO session alive by sending ping packets.
type socketIOPinger struct {
	stopCh   chan struct{}
	stopOnce sync.Once
}

// startSocketIOPing must run on the hub loop.
func (h *Hub) startSocketIOPing(c *sharedConn) *socketIOPinger {
	p := &socketIOPinger{stopCh: make(chan struct{})}
	interval := h.cfg.SocketIOPingInterval
	frame := []byte(h.cfg.SocketIOPingMessage)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				h.post(func() {
					if p.stopped() || c.stale() {
						return
					}
					if err := c.transport.Send(frame); err != nil {
						h.connLogger(c).Debugf("Socket.IO ping failed: %v", err)
					}
				})
			}
		}
	}()
	return p
}

func (p *socketIOPinger) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *socketIOPinger) stopped() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

// SocketIOURL rewrites a base socket.io address into its websocket transport URL.
func SocketIOURL(raw string) string {
	u := raw
	lower := strings.ToLower(u)
	switch {
	case strings.HasPrefix(lower, "https://"):
		u = "wss://" + u[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		u = "ws://" + u[len("http://"):]
	}
	return strings.TrimRight(u, "/") + "/socket.io/?EIO=3&transport=websocket"
}
