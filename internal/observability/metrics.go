package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry and every collector the service emits.
// A single instance is created at startup and shared by the middleware chain,
// the rate limiter, the response cache, the read router and the realtime hub.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	PanicsTotal        prometheus.Counter
	RateLimitDecisions *prometheus.CounterVec
	CacheRequests      *prometheus.CounterVec
	CacheInvalidations prometheus.Counter
	WSConnections      prometheus.Gauge
	WSEventsDelivered  *prometheus.CounterVec
	WSEventsDropped    prometheus.Counter
	ReplicaHealthy     prometheus.Gauge
	ReplicaFallbacks   prometheus.Counter
}

// NewMetrics creates the registry and registers all collectors under the
// loopboard namespace, alongside the standard Go and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loopboard",
			Name:      "http_requests_total",
			Help:      "HTTP requests processed, partitioned by method, route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loopboard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds, partitioned by method and route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		PanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loopboard",
			Name:      "panics_total",
			Help:      "Handler panics recovered by the middleware chain.",
		}),
		RateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loopboard",
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limit decisions, partitioned by backend and outcome.",
		}, []string{"backend", "outcome"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loopboard",
			Name:      "cache_requests_total",
			Help:      "Response cache lookups, partitioned by outcome.",
		}, []string{"outcome"}),
		CacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loopboard",
			Name:      "cache_invalidations_total",
			Help:      "Cache entries removed by prefix invalidation.",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loopboard",
			Name:      "ws_connections",
			Help:      "WebSocket connections currently registered with the hub.",
		}),
		WSEventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loopboard",
			Name:      "ws_events_delivered_total",
			Help:      "Realtime events queued for delivery, partitioned by event type.",
		}, []string{"event"}),
		WSEventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loopboard",
			Name:      "ws_events_dropped_total",
			Help:      "Realtime events dropped because a connection send buffer was full.",
		}),
		ReplicaHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loopboard",
			Name:      "db_replica_healthy",
			Help:      "Whether the read replica passed its last health probe (1 healthy, 0 unhealthy).",
		}),
		ReplicaFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loopboard",
			Name:      "db_replica_fallbacks_total",
			Help:      "Read queries routed to the primary because the replica was unhealthy.",
		}),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.PanicsTotal,
		m.RateLimitDecisions,
		m.CacheRequests,
		m.CacheInvalidations,
		m.WSConnections,
		m.WSEventsDelivered,
		m.WSEventsDropped,
		m.ReplicaHealthy,
		m.ReplicaFallbacks,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
