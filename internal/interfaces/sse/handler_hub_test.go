package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-socket-hub/internal/applicatoin/facade"
	"go-socket-hub/internal/infrastructure/config"
	"go-socket-hub/internal/infrastructure/hub"
	"go-socket-hub/internal/infrastructure/logger"
)

type upstreamTransport struct {
	mu       sync.Mutex
	handlers hub.Handlers
	opened   chan struct{}
}

func (u *upstreamTransport) Open(h hub.Handlers) {
	u.mu.Lock()
	u.handlers = h
	u.mu.Unlock()
	close(u.opened)
}

func (u *upstreamTransport) Send([]byte) error { return nil }
func (u *upstreamTransport) Close() error      { return nil }
func (u *upstreamTransport) ReceiveOnly() bool { return false }

func (u *upstreamTransport) h() hub.Handlers {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.handlers
}

func newHubServer(t *testing.T) (*httptest.Server, *facade.SubscriptionService, *hub.Hub, *upstreamTransport) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ut := &upstreamTransport{opened: make(chan struct{})}
	h := hub.New(logger.NewNop(), func(string) (hub.Transport, error) { return ut, nil })
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Stop(context.Background()) })

	svc := facade.NewSubscriptionService(h, config.Default().Hub, logger.NewNop())
	router := gin.New()
	InitSSERouter(logger.NewNop(), svc, &router.RouterGroup)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, svc, h, ut
}

func syncHub(t *testing.T, h *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Sync(ctx))
}

func TestStream_ResetDuringPendingReconnectEndsStream(t *testing.T) {
	srv, svc, h, ut := newHubServer(t)

	resp, err := http.Get(streamURL(srv, url.Values{
		"url":       {upstream},
		"reconnect": {"true"},
		"interval":  {"1h"},
	}))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case <-ut.opened:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream transport never opened")
	}

	ut.h().OnOpen()
	syncHub(t, h)
	ut.h().OnClose(hub.CloseEvent{Code: hub.CloseAbnormalClosure})
	syncHub(t, h)

	// the close is not terminal while a reconnect is scheduled
	require.Equal(t, 1, h.ObserverCount(upstream))

	require.NoError(t, svc.Reset(upstream, false))
	syncHub(t, h)

	type result struct {
		events []sse.Event
		err    error
	}
	done := make(chan result, 1)
	go func() {
		events, err := sse.Decode(resp.Body)
		done <- result{events, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.NotEmpty(t, r.events)
		last := r.events[len(r.events)-1]
		assert.Equal(t, "state", last.Event)
		data, ok := decodeEnvelope(t, last).Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, hub.ReadyStateClosed.String(), data["state"])
	case <-time.After(3 * time.Second):
		t.Fatal("stream still open after reset")
	}
	assert.Equal(t, 0, h.ObserverCount(upstream))
}
