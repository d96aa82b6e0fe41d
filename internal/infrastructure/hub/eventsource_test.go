package hub

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockSSEServer(t *testing.T, body string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			http.Error(w, "expected event stream", http.StatusNotAcceptable)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEventSourceTransport_DecodesEvents(t *testing.T) {
	server := mockSSEServer(t, ": welcome\n\n"+
		"event: tick\nid: 7\ndata: first line\ndata: second line\n\n"+
		"retry: 3000\ndata: plain\r\n\r\n")

	tr := NewEventSourceTransport(server.URL, server.Client(), TransportConfig{}, &mockLogger{})
	assert.True(t, tr.ReceiveOnly())
	assert.ErrorIs(t, tr.Send([]byte("x")), ErrReceiveOnly)

	events := newTransportEvents()
	tr.Open(events.handlers())
	defer tr.Close()

	events.waitOpen(t)

	tick := events.waitMessage(t)
	assert.Equal(t, "tick", tick.Event)
	assert.Equal(t, "7", tick.ID)
	assert.Equal(t, "first line\nsecond line", tick.Text())

	plain := events.waitMessage(t)
	assert.Equal(t, "message", plain.Event)
	assert.Equal(t, "", plain.ID)
	assert.Equal(t, "plain", plain.Text())

	// the stream ends without a close signal
	assert.ErrorIs(t, events.waitError(t), ErrStreamEnded)
	select {
	case ev := <-events.closed:
		t.Fatalf("receive-only transport reported close: %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEventSourceTransport_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	tr := NewEventSourceTransport(server.URL, nil, TransportConfig{}, &mockLogger{})
	events := newTransportEvents()
	tr.Open(events.handlers())

	err := events.waitError(t)
	assert.ErrorContains(t, err, "unexpected status 503")
	assert.Empty(t, events.opened)
}

func TestEventSourceTransport_CloseIsSilent(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	tr := NewEventSourceTransport(server.URL, server.Client(), TransportConfig{}, &mockLogger{})
	events := newTransportEvents()
	tr.Open(events.handlers())
	events.waitOpen(t)

	require.NoError(t, tr.Close())

	select {
	case err := <-events.errors:
		t.Fatalf("unexpected error after local close: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewFactory_SchemeSelection(t *testing.T) {
	factory := NewFactory(TransportConfig{}, nil, &mockLogger{})

	tr, err := factory("wss://stream.test/ws")
	require.NoError(t, err)
	assert.IsType(t, &WebSocketTransport{}, tr)

	tr, err = factory("https://stream.test/events")
	require.NoError(t, err)
	assert.IsType(t, &EventSourceTransport{}, tr)

	_, err = factory("ftp://stream.test")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = factory("://bad")
	assert.Error(t, err)
}
