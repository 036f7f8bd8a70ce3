// Package metrics exposes Prometheus collectors for the token endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the prometheus collectors of the token service.
type Metrics struct {
	registry *prometheus.Registry

	tokensIssued   prometheus.Counter
	actionsGranted prometheus.Counter
	requestsDenied *prometheus.CounterVec
}

// New returns a Metrics with a fresh registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,

		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Number of access tokens issued.",
		}),
		actionsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_granted_total",
			Help:      "Number of actions granted across issued tokens.",
		}),
		requestsDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_denied_total",
			Help:      "Number of token requests denied, by reason.",
		}, []string{"reason"}),
	}

	registry.MustRegister(m.tokensIssued, m.actionsGranted, m.requestsDenied)

	return m
}

// TokenIssued implements auth.TokenMetrics.
func (m *Metrics) TokenIssued(grantedActions int) {
	m.tokensIssued.Inc()
	m.actionsGranted.Add(float64(grantedActions))
}

// RequestDenied implements auth.TokenMetrics.
func (m *Metrics) RequestDenied(reason string) {
	m.requestsDenied.WithLabelValues(reason).Inc()
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
