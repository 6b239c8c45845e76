package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	events          *prometheus.CounterVec
	batches         *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	publishFailures *prometheus.CounterVec
	indexFailures   prometheus.Counter
	replayed        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pr_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pr_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pr_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pr_events_total",
			Help: "Events processed by kind and outcome.",
		}, []string{"kind", "outcome"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pr_batches_total",
			Help: "Submitted batches by terminal state.",
		}, []string{"state"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pr_batch_duration_seconds",
			Help:    "Time spent reconciling one submitted batch.",
			Buckets: prometheus.DefBuckets,
		}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pr_publish_failures_total",
			Help: "Failed publishes by sink.",
		}, []string{"sink"}),
		indexFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pr_index_failures_total",
			Help: "Failed secondary index writes.",
		}),
		replayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pr_replayed_records_total",
			Help: "Records re-sent by the replay job, by target.",
		}, []string{"target"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.events,
		m.batches,
		m.batchDuration,
		m.publishFailures,
		m.indexFailures,
		m.replayed,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncInflight() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) DecInflight() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAPIRequest(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	m.apiRequests.WithLabelValues(method, route, code).Inc()
	m.apiLatency.WithLabelValues(method, route, code).Observe(dur.Seconds())
}

func (m *Metrics) ObserveEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveBatch(state string, dur time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(state).Inc()
	m.batchDuration.Observe(dur.Seconds())
}

func (m *Metrics) IncPublishFailure(sink string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncIndexFailure() {
	if m == nil {
		return
	}
	m.indexFailures.Inc()
}

func (m *Metrics) AddReplayed(target string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.replayed.WithLabelValues(target).Add(float64(n))
}
