package hub

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"go-socket-hub/internal/infrastructure/logger"

	"github.com/stretchr/testify/require"
)

// Mock implementations for testing

type mockLogger struct{}

func (m *mockLogger) Debug(msg string)                              {}
func (m *mockLogger) Debugf(format string, args ...any)             {}
func (m *mockLogger) Info(msg string)                               {}
func (m *mockLogger) Infof(format string, args ...any)              {}
func (m *mockLogger) Warn(msg string)                               {}
func (m *mockLogger) Warnf(format string, args ...any)              {}
func (m *mockLogger) Error(msg string)                              {}
func (m *mockLogger) Errorf(format string, args ...any)             {}
func (m *mockLogger) Fatal(msg string)                              {}
func (m *mockLogger) Fatalf(format string, args ...any)             {}
func (m *mockLogger) WithField(key string, value any) logger.Logger { return m }
func (m *mockLogger) WithFields(fields logger.Fields) logger.Logger { return m }
func (m *mockLogger) WithContext(ctx context.Context) logger.Logger { return m }
func (m *mockLogger) SetLevel(level logger.Level)                   {}
func (m *mockLogger) SetOutput(output io.Writer)                    {}

// fakeTransport is driven by the test through the emit helpers.
type fakeTransport struct {
	key         string
	receiveOnly bool
	factory     *fakeFactory

	mu         sync.Mutex
	handlers   *Handlers
	sent       [][]byte
	closeCalls int
	sendErr    error
}

func (f *fakeTransport) Open(h Handlers) {
	f.mu.Lock()
	f.handlers = &h
	f.mu.Unlock()
	f.factory.opened(f)
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

// Close behaves like a real full-duplex transport and reports a clean close.
func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closeCalls++
	first := f.closeCalls == 1
	h := f.handlers
	f.mu.Unlock()

	if first && h != nil && !f.receiveOnly {
		h.OnClose(CloseEvent{Code: CloseNormalClosure, WasClean: true})
	}
	return nil
}

func (f *fakeTransport) ReceiveOnly() bool { return f.receiveOnly }

func (f *fakeTransport) h() Handlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		panic("transport not opened")
	}
	return *f.handlers
}

func (f *fakeTransport) emitOpen()           { f.h().OnOpen() }
func (f *fakeTransport) emitError(err error) { f.h().OnError(err) }
func (f *fakeTransport) emitText(s string) {
	f.h().OnMessage(Message{Kind: TextMessage, Data: []byte(s)})
}
func (f *fakeTransport) emitClose(code int) {
	f.h().OnClose(CloseEvent{Code: code, WasClean: code != CloseAbnormalClosure})
}

func (f *fakeTransport) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func (f *fakeTransport) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, b := range f.sent {
		out = append(out, string(b))
	}
	return out
}

func (f *fakeTransport) setSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

// fakeFactory records every transport the hub opens.
type fakeFactory struct {
	receiveOnly bool
	err         error

	mu         sync.Mutex
	transports map[string][]*fakeTransport
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{transports: make(map[string][]*fakeTransport)}
}

func (ff *fakeFactory) create(key string) (Transport, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if ff.err != nil {
		return nil, ff.err
	}
	return &fakeTransport{key: key, receiveOnly: ff.receiveOnly, factory: ff}, nil
}

func (ff *fakeFactory) opened(t *fakeTransport) {
	ff.mu.Lock()
	ff.transports[t.key] = append(ff.transports[t.key], t)
	ff.mu.Unlock()
}

func (ff *fakeFactory) count(key string) int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.transports[key])
}

func (ff *fakeFactory) latest(key string) *fakeTransport {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	ts := ff.transports[key]
	if len(ts) == 0 {
		return nil
	}
	return ts[len(ts)-1]
}

func newTestHub(t *testing.T, ff *fakeFactory, opts ...Option) *Hub {
	t.Helper()
	h := New(&mockLogger{}, ff.create, opts...)
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.Stop(ctx)
	})
	return h
}

// syncHub waits until the hub loop has handled everything emitted so far.
func syncHub(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.Sync(ctx))
}

func mustSubscribe(t *testing.T, h *Hub, key string, opts Options) *Observer {
	t.Helper()
	o, err := h.Subscribe(key, opts, nil)
	require.NoError(t, err)
	syncHub(t, h)
	return o
}

func lastText(o *Observer) string {
	msg, ok := o.LastMessage()
	if !ok {
		return ""
	}
	return msg.Text()
}

// recorder collects callback invocations from any goroutine.
type recorder struct {
	mu     sync.Mutex
	opens  int
	msgs   []string
	errs   []error
	closes []CloseEvent
	stops  []int
}

func (r *recorder) options() Options {
	return Options{
		OnOpen: func() {
			r.mu.Lock()
			r.opens++
			r.mu.Unlock()
		},
		OnMessage: func(m Message) {
			r.mu.Lock()
			r.msgs = append(r.msgs, m.Text())
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
		OnClose: func(ev CloseEvent) {
			r.mu.Lock()
			r.closes = append(r.closes, ev)
			r.mu.Unlock()
		},
		OnReconnectStop: func(limit int) {
			r.mu.Lock()
			r.stops = append(r.stops, limit)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) closeEvents() []CloseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CloseEvent(nil), r.closes...)
}

func (r *recorder) stopLimits() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.stops...)
}

// sinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type sinkFuncs struct {
	Message func(Message)
	State   func(ReadyState)
}

func (s sinkFuncs) SetLastMessage(msg Message) {
	if s.Message != nil {
		s.Message(msg)
	}
}

func (s sinkFuncs) SetReadyState(state ReadyState) {
	if s.State != nil {
		s.State(state)
	}
}
