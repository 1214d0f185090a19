// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kinship"

// Metrics groups the collectors updated by the engine and the HTTP layer.
type Metrics struct {
	registry *prometheus.Registry

	PresenceUpdates *prometheus.CounterVec
	OnlineUsers     prometheus.Gauge
	Evictions       prometheus.Counter
	EventsQueued    *prometheus.CounterVec
	EventsDelivered prometheus.Counter
	EventsPruned    prometheus.Counter
	Polls           *prometheus.CounterVec
	ActivePolls     prometheus.Gauge
	PollDuration    prometheus.Histogram
	Requests        *prometheus.CounterVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PresenceUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_updates_total",
			Help:      "Presence updates by reported status.",
		}, []string{"status"}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Users currently online or not available.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_evictions_total",
			Help:      "Users evicted after missing heartbeats.",
		}),
		EventsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_queued_total",
			Help:      "Events appended to recipient queues by type.",
		}, []string{"type"}),
		EventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Events drained by polls.",
		}),
		EventsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_pruned_total",
			Help:      "Events dropped for age.",
		}),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Finished long polls by outcome.",
		}, []string{"outcome"}),
		ActivePolls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_polls",
			Help:      "Long polls currently blocked.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time spent in a long poll.",
			Buckets:   []float64{.01, .1, .5, 1, 5, 10, 20, 30, 35},
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PresenceUpdates,
		m.OnlineUsers,
		m.Evictions,
		m.EventsQueued,
		m.EventsDelivered,
		m.EventsPruned,
		m.Polls,
		m.ActivePolls,
		m.PollDuration,
		m.Requests,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer is exposed for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
