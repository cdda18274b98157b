// Package metrics owns inlet's Prometheus counters.
//
// The core increments named counters; exposition lives behind Handler so the
// rest of the service never touches the registry directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingestion result labels for WebhookRequests.
const (
	ResultOK               = "ok"
	ResultInvalidSignature = "invalid_signature"
	ResultInvalidPayload   = "invalid_payload"
)

// Metrics bundles the service counters on a private registry, keeping the
// exposition free of default Go runtime collectors' registration conflicts in
// tests.
type Metrics struct {
	registry *prometheus.Registry

	// WebhookRequests counts ingestion attempts by result.
	WebhookRequests *prometheus.CounterVec
	// MessagesStored counts newly stored (non-duplicate) messages.
	MessagesStored prometheus.Counter
}

// New constructs a Metrics bundle with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		WebhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Total number of webhook requests received",
		}, []string{"result"}),
		MessagesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_stored_total",
			Help: "Total number of messages stored (idempotent; counts new records only)",
		}),
	}

	reg.MustRegister(m.WebhookRequests, m.MessagesStored)

	// Pre-create the result series so scrapes see zeros before traffic.
	for _, result := range []string{ResultOK, ResultInvalidSignature, ResultInvalidPayload} {
		m.WebhookRequests.WithLabelValues(result)
	}

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
