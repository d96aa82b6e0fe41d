// Package inboundtest provides an in-memory SubscriptionUseCase for handler tests.
package inboundtest

import (
	"sync"
	"testing"
	"time"

	"go-socket-hub/internal/infrastructure/hub"
	"go-socket-hub/internal/port/inbound"
)

type UseCase struct {
	mu sync.Mutex

	SubscribeErr error
	SendErr      error
	ResetErr     error
	EndpointList []hub.EndpointInfo
	Running      bool

	sent       []inbound.SendRequest
	resets     []string
	subscribed chan *Subscription
}

var _ inbound.SubscriptionUseCase = (*UseCase)(nil)

func New() *UseCase {
	return &UseCase{
		Running:    true,
		subscribed: make(chan *Subscription, 16),
	}
}

func (u *UseCase) Subscribe(req inbound.SubscribeRequest, callbacks hub.Options, sink hub.Sink) (inbound.Subscription, error) {
	if u.SubscribeErr != nil {
		return nil, u.SubscribeErr
	}
	s := &Subscription{
		Request:   req,
		Callbacks: callbacks,
		Sink:      sink,
		active:    true,
		closed:    make(chan struct{}),
	}
	u.subscribed <- s
	return s, nil
}

// WaitSubscribed returns the next subscription made through u.
func (u *UseCase) WaitSubscribed(t testing.TB) *Subscription {
	t.Helper()
	select {
	case s := <-u.subscribed:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription within 2s")
		return nil
	}
}

func (u *UseCase) Send(req inbound.SendRequest) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sent = append(u.sent, req)
	return u.SendErr
}

func (u *UseCase) Endpoints() []hub.EndpointInfo {
	return u.EndpointList
}

func (u *UseCase) Reset(rawURL string, socketIO bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.resets = append(u.resets, rawURL)
	return u.ResetErr
}

func (u *UseCase) Status() inbound.Status {
	return inbound.Status{
		Running:   u.Running,
		Endpoints: len(u.EndpointList),
	}
}

func (u *UseCase) Sent() []inbound.SendRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]inbound.SendRequest(nil), u.sent...)
}

func (u *UseCase) Resets() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.resets...)
}

// Subscription records what a handler did with its subscription.
type Subscription struct {
	Request   inbound.SubscribeRequest
	Callbacks hub.Options
	Sink      hub.Sink

	mu      sync.Mutex
	active  bool
	sendErr error
	sent    [][]byte
	once    sync.Once
	closed  chan struct{}
}

func (s *Subscription) Key() string { return s.Request.URL }

func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Deactivate simulates a reset of the endpoint.
func (s *Subscription) Deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

func (s *Subscription) SetSendErr(err error) {
	s.mu.Lock()
	s.sendErr = err
	s.mu.Unlock()
}

func (s *Subscription) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, data)
	return nil
}

func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.Deactivate()
		close(s.closed)
	})
	return nil
}

func (s *Subscription) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

// Closed is closed once the handler released the subscription.
func (s *Subscription) Closed() <-chan struct{} {
	return s.closed
}
