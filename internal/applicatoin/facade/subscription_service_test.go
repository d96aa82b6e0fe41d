package facade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-socket-hub/internal/infrastructure/config"
	"go-socket-hub/internal/infrastructure/hub"
	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/port/inbound"
)

type stubTransport struct {
	mu       sync.Mutex
	handlers hub.Handlers
	sent     [][]byte
	closed   bool
}

func (s *stubTransport) Open(h hub.Handlers) {
	s.mu.Lock()
	s.handlers = h
	s.mu.Unlock()
	go h.OnOpen()
}

func (s *stubTransport) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, data)
	return nil
}

func (s *stubTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubTransport) ReceiveOnly() bool { return false }

func (s *stubTransport) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type stubFactory struct {
	mu         sync.Mutex
	transports map[string]*stubTransport
}

func (f *stubFactory) create(key string) (hub.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &stubTransport{}
	f.transports[key] = t
	return t, nil
}

func (f *stubFactory) get(key string) *stubTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[key]
}

func newTestService(t *testing.T, allowed ...string) (*SubscriptionService, *hub.Hub, *stubFactory) {
	t.Helper()
	ff := &stubFactory{transports: make(map[string]*stubTransport)}
	h := hub.New(logger.NewNop(), ff.create)
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Stop(context.Background()) })

	cfg := config.Default().Hub
	cfg.AllowedHosts = allowed
	return NewSubscriptionService(h, cfg, logger.NewNop()), h, ff
}

func syncHub(t *testing.T, h *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Sync(ctx))
}

func TestResolveKey(t *testing.T) {
	svc, _, _ := newTestService(t, "feed.example.com", "*.internal.test")

	tests := []struct {
		name     string
		raw      string
		socketIO bool
		want     string
		wantErr  error
	}{
		{name: "websocket", raw: "wss://feed.example.com/v1", want: "wss://feed.example.com/v1"},
		{name: "event stream", raw: " https://feed.example.com/events ", want: "https://feed.example.com/events"},
		{name: "wildcard host", raw: "ws://a.internal.test:9000/x", want: "ws://a.internal.test:9000/x"},
		{name: "fragment dropped", raw: "ws://feed.example.com/x#frag", want: "ws://feed.example.com/x"},
		{name: "socket.io", raw: "https://feed.example.com/", socketIO: true,
			want: "wss://feed.example.com/socket.io/?EIO=3&transport=websocket"},
		{name: "empty", raw: "  ", wantErr: ErrMissingURL},
		{name: "bad scheme", raw: "ftp://feed.example.com", wantErr: hub.ErrUnsupportedScheme},
		{name: "no host", raw: "ws:///path", wantErr: ErrInvalidURL},
		{name: "host not allowed", raw: "ws://evil.test/x", wantErr: ErrHostNotAllowed},
		{name: "bare suffix not matched by wildcard", raw: "ws://internal.test/x", wantErr: ErrHostNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ResolveKey(tt.raw, tt.socketIO)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptions(t *testing.T) {
	svc, _, _ := newTestService(t)

	opened := false
	cb := hub.Options{
		OnOpen:            func() { opened = true },
		ReconnectAttempts: 99,
	}

	opts := svc.Options(inbound.SubscribeRequest{URL: "ws://x"}, cb)
	assert.Nil(t, opts.ShouldReconnect)
	assert.Nil(t, opts.Heartbeat)
	assert.Nil(t, opts.Filter)
	assert.Zero(t, opts.ReconnectAttempts)
	opts.OnOpen()
	assert.True(t, opened)

	opts = svc.Options(inbound.SubscribeRequest{
		URL:       "ws://x",
		Heartbeat: true,
		Reconnect: true,
		Attempts:  3,
		Interval:  time.Second,
		Event:     "tick",
		SocketIO:  true,
	}, cb)
	require.NotNil(t, opts.ShouldReconnect)
	assert.True(t, opts.ShouldReconnect(hub.CloseEvent{Code: hub.CloseAbnormalClosure}))
	assert.Equal(t, 3, opts.ReconnectAttempts)
	assert.Equal(t, time.Second, opts.ReconnectInterval)
	require.NotNil(t, opts.Heartbeat)
	assert.Equal(t, hub.DefaultHeartbeatInterval, opts.Heartbeat.Interval)
	assert.True(t, opts.FromSocketIO)
	require.NotNil(t, opts.Filter)
	assert.True(t, opts.Filter(hub.Message{Event: "tick"}))
	assert.False(t, opts.Filter(hub.Message{Event: "message"}))
}

func TestSubscribeSendAndClose(t *testing.T) {
	svc, h, ff := newTestService(t)
	const key = "ws://feed.example.com/v1"

	openCh := make(chan struct{}, 2)
	cb := hub.Options{OnOpen: func() { openCh <- struct{}{} }}

	first, err := svc.Subscribe(inbound.SubscribeRequest{URL: key}, cb, nil)
	require.NoError(t, err)
	second, err := svc.Subscribe(inbound.SubscribeRequest{URL: key}, hub.Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, key, first.Key())

	select {
	case <-openCh:
	case <-time.After(time.Second):
		t.Fatal("OnOpen not called")
	}
	syncHub(t, h)
	assert.Equal(t, 1, h.ConnectionCount())
	assert.Equal(t, 2, h.ObserverCount(key))

	require.NoError(t, second.Send([]byte("hello")))
	require.NoError(t, svc.Send(inbound.SendRequest{URL: key, Message: "again"}))
	tr := ff.get(key)
	require.NotNil(t, tr)
	tr.mu.Lock()
	assert.Equal(t, [][]byte{[]byte("hello"), []byte("again")}, tr.sent)
	tr.mu.Unlock()

	require.NoError(t, first.Close())
	require.NoError(t, first.Close())
	syncHub(t, h)
	assert.Equal(t, 1, h.ObserverCount(key))
	assert.False(t, tr.isClosed())

	require.NoError(t, second.Close())
	syncHub(t, h)
	assert.Zero(t, h.ConnectionCount())
	assert.True(t, tr.isClosed())
}

func TestSubscribe_Errors(t *testing.T) {
	svc, h, _ := newTestService(t, "feed.example.com")

	_, err := svc.Subscribe(inbound.SubscribeRequest{URL: "ws://other.test"}, hub.Options{}, nil)
	assert.ErrorIs(t, err, ErrHostNotAllowed)

	require.NoError(t, h.Stop(context.Background()))
	_, err = svc.Subscribe(inbound.SubscribeRequest{URL: "ws://feed.example.com"}, hub.Options{}, nil)
	assert.ErrorIs(t, err, hub.ErrNotRunning)
}

func TestSend_NotConnected(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Send(inbound.SendRequest{URL: "ws://nobody.test", Message: "x"})
	assert.True(t, errors.Is(err, hub.ErrNotConnected))
}

func TestResetAndStatus(t *testing.T) {
	svc, h, ff := newTestService(t)

	a, err := svc.Subscribe(inbound.SubscribeRequest{URL: "ws://a.test"}, hub.Options{}, nil)
	require.NoError(t, err)
	b, err := svc.Subscribe(inbound.SubscribeRequest{URL: "ws://b.test"}, hub.Options{}, nil)
	require.NoError(t, err)
	syncHub(t, h)

	status := svc.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 2, status.Connections)
	assert.Equal(t, 2, status.Endpoints)
	assert.Len(t, svc.Endpoints(), 2)

	require.NoError(t, svc.Reset("ws://a.test", false))
	syncHub(t, h)
	assert.False(t, a.Active())
	assert.True(t, b.Active())
	assert.True(t, ff.get("ws://a.test").isClosed())
	assert.False(t, ff.get("ws://b.test").isClosed())
	assert.Equal(t, 1, h.ConnectionCount())

	assert.ErrorIs(t, svc.Reset("gopher://a.test", false), hub.ErrUnsupportedScheme)

	require.NoError(t, svc.Reset("", false))
	syncHub(t, h)
	assert.Zero(t, h.ConnectionCount())
	assert.Zero(t, svc.Status().Endpoints)
}
