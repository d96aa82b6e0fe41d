package hub

// Handlers are the four lifecycle callbacks a transport reports through.
type Handlers struct {
	OnOpen    func()
	OnMessage func(Message)
	OnError   func(error)
	OnClose   func(CloseEvent)
}

// Transport is one physical connection to an endpoint.
//
// Open must return promptly and deliver events through h from its own goroutines.
// OnOpen precedes any OnMessage; OnClose is the last event. Receive-only transports
// never call OnClose and report failures through OnError instead.
type Transport interface {
	Open(h Handlers)
	Send(data []byte) error
	Close() error
	ReceiveOnly() bool
}

// Factory creates an unopened transport for an endpoint key.
type Factory func(key string) (Transport, error)

// Sink receives the slot writes the hub makes for one observer.
// Calls happen on the hub loop and must not block.
type Sink interface {
	SetLastMessage(msg Message)
	SetReadyState(state ReadyState)
}

// Metrics receives hub activity counters.
type Metrics interface {
	ConnectionOpened(key string)
	ConnectionClosed(key string, code int)
	ObserversChanged(key string, count int)
	MessageDispatched(key string, observers int)
	ReconnectScheduled(key string)
	ReconnectExhausted(key string)
	HeartbeatTimeout(key string)
	ForgetEndpoint(key string)
}

type nopMetrics struct{}

func (nopMetrics) ConnectionOpened(string)       {}
func (nopMetrics) ConnectionClosed(string, int)  {}
func (nopMetrics) ObserversChanged(string, int)  {}
func (nopMetrics) MessageDispatched(string, int) {}
func (nopMetrics) ReconnectScheduled(string)     {}
func (nopMetrics) ReconnectExhausted(string)     {}
func (nopMetrics) HeartbeatTimeout(string)       {}
func (nopMetrics) ForgetEndpoint(string)         {}
