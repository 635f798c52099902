package mcpgateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes recorded by the router.
const (
	outcomeRouted         = "routed"
	outcomeInitialized    = "initialized"
	outcomeInitRejected   = "initialize_rejected"
	outcomeUnknownSession = "unknown_session"
	outcomeMissingSession = "missing_session"
	outcomeBadEnvelope    = "bad_envelope"
	outcomeTooLarge       = "too_large"
	outcomeTerminated     = "terminated"
	outcomeInternal       = "internal_error"
	outcomeBadHeaders     = "bad_headers"
)

type gatewayMetrics struct {
	registry *prometheus.Registry

	active   prometheus.Gauge
	opened   prometheus.Counter
	closed   *prometheus.CounterVec
	requests *prometheus.CounterVec
}

// newGatewayMetrics registers the gateway collectors with reg. A nil registry
// yields a nil *gatewayMetrics whose methods are no-ops.
func newGatewayMetrics(reg *prometheus.Registry) *gatewayMetrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &gatewayMetrics{
		registry: reg,
		active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "feedbin_mcp",
			Name:      "sessions_active",
			Help:      "Number of live MCP sessions.",
		}),
		opened: f.NewCounter(prometheus.CounterOpts{
			Namespace: "feedbin_mcp",
			Name:      "sessions_opened_total",
			Help:      "MCP sessions that completed initialization.",
		}),
		closed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedbin_mcp",
			Name:      "sessions_closed_total",
			Help:      "MCP sessions removed from the session table, by reason.",
		}, []string{"reason"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedbin_mcp",
			Name:      "requests_total",
			Help:      "Protocol requests handled by the router, by method and outcome.",
		}, []string{"method", "outcome"}),
	}
}

func (m *gatewayMetrics) sessionOpened() {
	if m == nil {
		return
	}
	m.active.Inc()
	m.opened.Inc()
}

func (m *gatewayMetrics) sessionClosed(reason closeReason) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.closed.WithLabelValues(string(reason)).Inc()
}

func (m *gatewayMetrics) request(method, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
}

func (m *gatewayMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
