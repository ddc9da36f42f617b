// Package metrics exposes Prometheus counters for queries, API requests and
// background re-checks. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "mcping"

// Query results used as label values.
const (
	ResultOnline  = "online"
	ResultOffline = "offline"
	ResultError   = "error"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	registry     *prometheus.Registry
	queries      *prometheus.CounterVec
	queryLatency *prometheus.HistogramVec
	requests     *prometheus.CounterVec
	dropped      prometheus.Counter
	rechecks     *prometheus.CounterVec
}

// New registers the collectors, plus the Go runtime and process collectors, on
// a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queries_total",
			Help:      "Live status queries by edition and result",
		}, []string{"edition", "result"}),

		queryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "server_latency_seconds",
			Help:      "Round trip reported by answering servers",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"edition"}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code",
		}, []string{"route", "code"}),

		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "track_dropped_total",
			Help:      "Online results dropped because the tracking queue was full",
		}),

		rechecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rechecks_total",
			Help:      "Tracked server re-checks by result",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Query records one live query. latencyMS is ignored unless the server answered.
func (m *Metrics) Query(edition, result string, latencyMS float64) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(edition, result).Inc()
	if result == ResultOnline {
		m.queryLatency.WithLabelValues(edition).Observe(latencyMS / 1000)
	}
}

// Request records one API request. route is the mux pattern, not the raw path.
func (m *Metrics) Request(route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Dropped records a result that did not fit into the tracking queue.
func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// Recheck records the outcome of one background re-check.
func (m *Metrics) Recheck(result string) {
	if m == nil {
		return
	}
	m.rechecks.WithLabelValues(result).Inc()
}
