package hub

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go-socket-hub/internal/infrastructure/logger"

	"github.com/gin-contrib/sse"
)

// ErrStreamEnded is reported when the server finishes an event stream.
var ErrStreamEnded = errors.New("event stream ended")

// EventSourceTransport is a receive-only transport reading a text/event-stream response.
//
// It never reports a close: every failure, including the end of the stream, is an error.
type EventSourceTransport struct {
	url    string
	client *http.Client
	cfg    TransportConfig
	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewEventSourceTransport creates an unopened transport for url. client may be nil.
func NewEventSourceTransport(url string, client *http.Client, cfg TransportConfig, log logger.Logger) *EventSourceTransport {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &EventSourceTransport{
		url:    url,
		client: client,
		cfg:    cfg.withDefaults(),
		logger: log.WithFields(logger.Fields{"transport": "eventsource", "url": url}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (t *EventSourceTransport) ReceiveOnly() bool {
	return true
}

// Send always fails: event streams only flow from the server.
func (t *EventSourceTransport) Send([]byte) error {
	return ErrReceiveOnly
}

func (t *EventSourceTransport) Open(h Handlers) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	go t.run(h)
}

// Close aborts the request. Only the first call has an effect.
func (t *EventSourceTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.cancel()
	return nil
}

func (t *EventSourceTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *EventSourceTransport) fail(h Handlers, err error) {
	if t.isClosed() {
		return
	}
	t.logger.Debugf("Event stream failed: %v", err)
	h.OnError(err)
}

func (t *EventSourceTransport) run(h Handlers) {
	req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, t.url, nil)
	if err != nil {
		t.fail(h, fmt.Errorf("build request: %w", err))
		return
	}
	for k, vs := range t.cfg.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		t.fail(h, fmt.Errorf("connect %s: %w", t.url, err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.fail(h, fmt.Errorf("connect %s: unexpected status %d", t.url, resp.StatusCode))
		return
	}

	if t.isClosed() {
		return
	}
	t.logger.Debug("Event stream connected")
	h.OnOpen()

	if err := t.readStream(resp.Body, h); err != nil {
		t.fail(h, err)
	}
}

// readStream cuts the body into blank-line-terminated blocks and decodes each one.
func (t *EventSourceTransport) readStream(body io.Reader, h Handlers) error {
	reader := bufio.NewReader(body)
	var block bytes.Buffer

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			switch {
			case line == "":
				if block.Len() > 0 {
					t.dispatch(block.Bytes(), h)
					block.Reset()
				}
			case strings.HasPrefix(line, "retry:"):
				// reconnection timing belongs to the hub
			default:
				block.WriteString(line)
				block.WriteByte('\n')
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrStreamEnded
			}
			return fmt.Errorf("read event stream: %w", err)
		}
	}
}

func (t *EventSourceTransport) dispatch(block []byte, h Handlers) {
	events, err := sse.Decode(bytes.NewReader(block))
	if err != nil {
		t.logger.Warnf("Dropping undecodable event block: %v", err)
		return
	}

	receivedAt := time.Now()
	for _, ev := range events {
		data, _ := ev.Data.(string)
		h.OnMessage(Message{
			Kind:       TextMessage,
			Data:       []byte(data),
			Event:      ev.Event,
			ID:         ev.Id,
			ReceivedAt: receivedAt,
		})
	}
}
