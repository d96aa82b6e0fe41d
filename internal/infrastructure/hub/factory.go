package hub

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go-socket-hub/internal/infrastructure/logger"
)

// NewFactory returns a Factory that picks the transport from the key's URL scheme:
// ws and wss dial a websocket, http and https open an event stream.
func NewFactory(cfg TransportConfig, client *http.Client, log logger.Logger) Factory {
	return func(key string) (Transport, error) {
		u, err := url.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint %q: %w", key, err)
		}

		switch strings.ToLower(u.Scheme) {
		case "ws", "wss":
			return NewWebSocketTransport(key, cfg, log), nil
		case "http", "https":
			return NewEventSourceTransport(key, client, cfg, log), nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
		}
	}
}
