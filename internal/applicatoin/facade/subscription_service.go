package facade

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go-socket-hub/internal/infrastructure/config"
	"go-socket-hub/internal/infrastructure/hub"
	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/port/inbound"
)

var (
	ErrMissingURL     = errors.New("upstream url is required")
	ErrInvalidURL     = errors.New("invalid upstream url")
	ErrHostNotAllowed = errors.New("upstream host is not allowed")
)

type SubscriptionService struct {
	hub    *hub.Hub
	cfg    config.HubConfig
	logger logger.Logger
}

var _ inbound.SubscriptionUseCase = (*SubscriptionService)(nil)

func NewSubscriptionService(h *hub.Hub, cfg config.HubConfig, log logger.Logger) *SubscriptionService {
	return &SubscriptionService{
		hub:    h,
		cfg:    cfg,
		logger: log.WithField("service", "subscription"),
	}
}

// ResolveKey turns a client supplied URL into the endpoint key used by the hub.
func (s *SubscriptionService) ResolveKey(raw string, socketIO bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingURL
	}
	if socketIO {
		raw = hub.SocketIOURL(raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return "", fmt.Errorf("%w: %q", hub.ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	if !s.hostAllowed(u.Hostname()) {
		return "", fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	u.Fragment = ""
	return u.String(), nil
}

// hostAllowed matches exact names and "*.suffix" wildcards. An empty list allows any host.
func (s *SubscriptionService) hostAllowed(host string) bool {
	if len(s.cfg.AllowedHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, allowed := range s.cfg.AllowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if suffix, ok := strings.CutPrefix(allowed, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}

// Options copies the callbacks of cb and fills the policy fields from req.
func (s *SubscriptionService) Options(req inbound.SubscribeRequest, cb hub.Options) hub.Options {
	opts := hub.Options{
		OnOpen:          cb.OnOpen,
		OnClose:         cb.OnClose,
		OnMessage:       cb.OnMessage,
		OnError:         cb.OnError,
		OnReconnectStop: cb.OnReconnectStop,
		FromSocketIO:    req.SocketIO,
	}

	if req.Heartbeat {
		hb := s.cfg.Heartbeat
		opts.Heartbeat = &hb
	}

	if req.Reconnect {
		opts.ShouldReconnect = func(hub.CloseEvent) bool { return true }
		opts.ReconnectAttempts = req.Attempts
		opts.ReconnectInterval = req.Interval
	}

	if req.Event != "" {
		event := req.Event
		opts.Filter = func(msg hub.Message) bool {
			return msg.Event == event
		}
	}

	return opts
}

func (s *SubscriptionService) Subscribe(req inbound.SubscribeRequest, callbacks hub.Options, sink hub.Sink) (inbound.Subscription, error) {
	key, err := s.ResolveKey(req.URL, req.SocketIO)
	if err != nil {
		return nil, err
	}

	o, err := s.hub.Subscribe(key, s.Options(req, callbacks), sink)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", key, err)
	}

	s.logger.WithFields(logger.Fields{
		"endpoint":    key,
		"observer_id": o.ID(),
		"heartbeat":   req.Heartbeat,
		"reconnect":   req.Reconnect,
	}).Info("Client subscribed")

	return &subscription{hub: s.hub, observer: o, logger: s.logger}, nil
}

func (s *SubscriptionService) Send(req inbound.SendRequest) error {
	key, err := s.ResolveKey(req.URL, req.SocketIO)
	if err != nil {
		return err
	}
	return s.hub.Send(key, []byte(req.Message))
}

func (s *SubscriptionService) Endpoints() []hub.EndpointInfo {
	return s.hub.Endpoints()
}

func (s *SubscriptionService) Reset(rawURL string, socketIO bool) error {
	if strings.TrimSpace(rawURL) == "" {
		s.hub.Reset()
		s.logger.Warn("Reset requested for all endpoints")
		return nil
	}

	key, err := s.ResolveKey(rawURL, socketIO)
	if err != nil {
		return err
	}
	s.hub.Reset(key)
	s.logger.Warnf("Reset requested for %s", key)
	return nil
}

func (s *SubscriptionService) Status() inbound.Status {
	return inbound.Status{
		Running:     s.hub.IsRunning(),
		Connections: s.hub.ConnectionCount(),
		Endpoints:   len(s.hub.Endpoints()),
	}
}

type subscription struct {
	hub      *hub.Hub
	observer *hub.Observer
	logger   logger.Logger

	once sync.Once
	err  error
}

func (s *subscription) Key() string  { return s.observer.Key() }
func (s *subscription) Active() bool { return s.observer.Registered() }

func (s *subscription) Send(data []byte) error {
	return s.observer.Send(data)
}

// Close releases the observer; the shared connection closes with its last observer.
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.err = s.hub.Release(s.observer)
		s.logger.WithFields(logger.Fields{
			"endpoint":    s.observer.Key(),
			"observer_id": s.observer.ID(),
		}).Info("Client unsubscribed")
	})
	return s.err
}
