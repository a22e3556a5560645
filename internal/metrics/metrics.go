// Package metrics exposes Prometheus counters for routed stanzas and disco
// queries.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meszmate/stanzaroute/internal/bus"
	"github.com/meszmate/stanzaroute/internal/namespace"
	"github.com/meszmate/stanzaroute/internal/xmpp"
	"github.com/meszmate/stanzaroute/internal/xmpp/features"
)

// Disco outcome labels
const (
	OutcomeAnswered = "answered"
	OutcomeNotFound = "not_found"
	OutcomeTimeout  = "timeout"
	OutcomeFailed   = "failed"
)

// Metrics holds the collectors on their own registry
type Metrics struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	discoQueries  *prometheus.CounterVec
	discoDuration *prometheus.HistogramVec
	connected     prometheus.Gauge
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanzaroute_events_total",
				Help: "Events emitted on the bus, by event name",
			},
			[]string{"event"},
		),
		discoQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stanzaroute_disco_queries_total",
				Help: "Inbound disco queries, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		discoDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stanzaroute_disco_wait_seconds",
				Help:    "Time spent waiting for a disco answer",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"kind"},
		),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stanzaroute_connected",
			Help: "1 while the gateway session is up",
		}),
	}

	m.registry.MustRegister(m.events, m.discoQueries, m.discoDuration, m.connected)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Attach counts every event emitted on b
func (m *Metrics) Attach(b *bus.EventBus) {
	b.SubscribeAll(func(n bus.Notification) {
		m.events.WithLabelValues(n.Name).Inc()
	})
}

// ObserveDisco records a settled disco query
func (m *Metrics) ObserveDisco(r xmpp.DiscoResult) {
	kind := "info"
	if r.Query.Query != nil && r.Query.Query.Space() == namespace.DiscoItems {
		kind = "items"
	}
	m.discoQueries.WithLabelValues(kind, Outcome(r.Err)).Inc()
	m.discoDuration.WithLabelValues(kind).Observe(r.Elapsed.Seconds())
}

// SetConnected updates the connection gauge
func (m *Metrics) SetConnected(up bool) {
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

// Outcome maps a disco error to its label
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeAnswered
	case errors.Is(err, features.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	}
	return OutcomeFailed
}

// Handler serves /metrics and /healthz. healthy reports whether the gateway
// is connected; nil means always healthy. Callers may mount more routes.
func (m *Metrics) Handler(healthy func() bool) chi.Router {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if healthy != nil && !healthy() {
			http.Error(w, "disconnected", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	return r
}
