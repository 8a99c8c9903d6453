// Package metrics exposes Prometheus instrumentation for the script endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scriptguard"

type Metrics struct {
	registry        *prometheus.Registry
	decisions       *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	analyticsErrors prometheus.Counter
	rateLimited     prometheus.Counter
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Script requests by payload kind and denial reason.",
		}, []string{"kind", "reason"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "asset_fetch_duration_seconds",
			Help:      "Latency of protected asset fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "result"}),
		analyticsErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_record_errors_total",
			Help:      "Execution records that could not be stored or published.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Script requests rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(
		m.decisions,
		m.fetchDuration,
		m.analyticsErrors,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveDecision(kind, reason string) {
	if reason == "" {
		reason = "none"
	}
	m.decisions.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) ObserveFetch(source string, ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.fetchDuration.WithLabelValues(source, result).Observe(d.Seconds())
}

func (m *Metrics) AnalyticsError() { m.analyticsErrors.Inc() }

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
