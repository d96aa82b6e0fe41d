package metrics

import (
	"strconv"

	"go-socket-hub/internal/infrastructure/hub"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric when no namespace is configured.
const DefaultNamespace = "sockethub"

// PrometheusCollector implements hub.Metrics backed by Prometheus.
type PrometheusCollector struct {
	connectionsOpen     *prometheus.GaugeVec
	connectionsOpened   *prometheus.CounterVec
	connectionsClosed   *prometheus.CounterVec
	observers           *prometheus.GaugeVec
	messagesDispatched  *prometheus.CounterVec
	fanOut              prometheus.Histogram
	reconnectsScheduled *prometheus.CounterVec
	reconnectsExhausted *prometheus.CounterVec
	heartbeatTimeouts   *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements hub.Metrics.
var _ hub.Metrics = (*PrometheusCollector)(nil)

// NewPrometheus creates the collector and registers it with reg.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace (defaults to DefaultNamespace if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	p := &PrometheusCollector{
		connectionsOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connection_open",
			Help:      "Whether the shared connection of an endpoint is open (1) or not (0).",
		}, []string{"endpoint"}),
		connectionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connections_opened_total",
			Help:      "Total shared connections that reached the open state.",
		}, []string{"endpoint"}),
		connectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connections_closed_total",
			Help:      "Total shared connection closes by close code.",
		}, []string{"code"}),
		observers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "observers",
			Help:      "Current number of observers registered per endpoint.",
		}, []string{"endpoint"}),
		messagesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_dispatched_total",
			Help:      "Total upstream messages fanned out per endpoint.",
		}, []string{"endpoint"}),
		fanOut: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "message_fanout_observers",
			Help:      "Observers reached by a single upstream message.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1 .. 512
		}),
		reconnectsScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "reconnects_scheduled_total",
			Help:      "Total observer reconnects scheduled per endpoint.",
		}, []string{"endpoint"}),
		reconnectsExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "reconnects_exhausted_total",
			Help:      "Total observers that gave up reconnecting per endpoint.",
		}, []string{"endpoint"}),
		heartbeatTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "heartbeat_timeouts_total",
			Help:      "Total connections forced closed by the heartbeat monitor.",
		}, []string{"endpoint"}),
	}

	reg.MustRegister(
		p.connectionsOpen,
		p.connectionsOpened,
		p.connectionsClosed,
		p.observers,
		p.messagesDispatched,
		p.fanOut,
		p.reconnectsScheduled,
		p.reconnectsExhausted,
		p.heartbeatTimeouts,
	)
	return p
}

// ConnectionOpened marks the endpoint's shared connection as open.
func (p *PrometheusCollector) ConnectionOpened(key string) {
	p.connectionsOpen.WithLabelValues(key).Set(1)
	p.connectionsOpened.WithLabelValues(key).Inc()
}

// ConnectionClosed records a close with its code.
func (p *PrometheusCollector) ConnectionClosed(key string, code int) {
	p.connectionsOpen.WithLabelValues(key).Set(0)
	p.connectionsClosed.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (p *PrometheusCollector) ObserversChanged(key string, count int) {
	p.observers.WithLabelValues(key).Set(float64(count))
}

func (p *PrometheusCollector) MessageDispatched(key string, observers int) {
	p.messagesDispatched.WithLabelValues(key).Inc()
	p.fanOut.Observe(float64(observers))
}

func (p *PrometheusCollector) ReconnectScheduled(key string) {
	p.reconnectsScheduled.WithLabelValues(key).Inc()
}

func (p *PrometheusCollector) ReconnectExhausted(key string) {
	p.reconnectsExhausted.WithLabelValues(key).Inc()
}

func (p *PrometheusCollector) HeartbeatTimeout(key string) {
	p.heartbeatTimeouts.WithLabelValues(key).Inc()
}

// ForgetEndpoint drops every per-endpoint series once the endpoint is torn down.
func (p *PrometheusCollector) ForgetEndpoint(key string) {
	p.connectionsOpen.DeleteLabelValues(key)
	p.connectionsOpened.DeleteLabelValues(key)
	p.observers.DeleteLabelValues(key)
	p.messagesDispatched.DeleteLabelValues(key)
	p.reconnectsScheduled.DeleteLabelValues(key)
	p.reconnectsExhausted.DeleteLabelValues(key)
	p.heartbeatTimeouts.DeleteLabelValues(key)
}
