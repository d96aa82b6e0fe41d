package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go-socket-hub/internal/infrastructure/logger"

	"github.com/gorilla/websocket"
)

// TransportConfig holds the dial and write settings shared by the built-in transports.
type TransportConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	Header           http.Header   `yaml:"-"`
}

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
)

func (c TransportConfig) withDefaults() TransportConfig {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

// WebSocketTransport is a full-duplex transport over a single gorilla websocket connection.
type WebSocketTransport struct {
	url    string
	cfg    TransportConfig
	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// Write serialization
	writeMu sync.Mutex

	mu      sync.RWMutex
	conn    *websocket.Conn
	opened  bool
	closed  bool
	started bool
}

// NewWebSocketTransport creates an unopened transport for url.
func NewWebSocketTransport(url string, cfg TransportConfig, log logger.Logger) *WebSocketTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketTransport{
		url:    url,
		cfg:    cfg.withDefaults(),
		logger: log.WithFields(logger.Fields{"transport": "websocket", "url": url}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ReceiveOnly is false: websockets carry traffic both ways.
func (t *WebSocketTransport) ReceiveOnly() bool {
	return false
}

// Open dials in the background and reports through h.
func (t *WebSocketTransport) Open(h Handlers) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	go t.run(h)
}

func (t *WebSocketTransport) run(h Handlers) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.cfg.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(t.ctx, t.url, t.cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if t.isClosed() {
			h.OnClose(CloseEvent{Code: CloseNormalClosure, Reason: "closed before open", WasClean: true})
			return
		}
		t.logger.Debugf("Dial failed: %v", err)
		h.OnError(fmt.Errorf("dial %s: %w", t.url, err))
		h.OnClose(CloseEvent{Code: CloseAbnormalClosure, Reason: err.Error()})
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = conn.Close()
		h.OnClose(CloseEvent{Code: CloseNormalClosure, Reason: "closed before open", WasClean: true})
		return
	}
	t.conn = conn
	t.opened = true
	t.mu.Unlock()

	t.logger.Debug("WebSocket connected")
	h.OnOpen()

	h.OnClose(t.readLoop(conn, h))
}

// readLoop delivers data frames until the connection ends and returns the resulting close event.
func (t *WebSocketTransport) readLoop(conn *websocket.Conn, h Handlers) CloseEvent {
	defer func() {
		t.mu.Lock()
		t.opened = false
		t.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		kind, data, err := conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			if t.isClosed() {
				return CloseEvent{Code: CloseNormalClosure, WasClean: true}
			}

			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return CloseEvent{
					Code:     ce.Code,
					Reason:   ce.Text,
					WasClean: ce.Code != websocket.CloseAbnormalClosure,
				}
			}

			t.logger.Warnf("WebSocket read error: %v", err)
			h.OnError(err)
			return CloseEvent{Code: CloseAbnormalClosure, Reason: err.Error()}
		}

		msg := Message{Kind: TextMessage, Data: data, ReceivedAt: receivedAt}
		if kind == websocket.BinaryMessage {
			msg.Kind = BinaryMessage
		}
		h.OnMessage(msg)
	}
}

// Send writes data as a single text frame.
func (t *WebSocketTransport) Send(data []byte) error {
	t.mu.RLock()
	conn, opened, closed := t.conn, t.opened, t.closed
	t.mu.RUnlock()

	if closed {
		return ErrAlreadyClosed
	}
	if !opened {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal closure frame and releases the connection. Only the first call has an effect.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	t.cancel()

	if conn == nil {
		return nil
	}

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

func (t *WebSocketTransport) isClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
