// Package metrics exposes extraction counters and fetch latencies to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cvurl"

// Metrics holds the collectors. All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	Extractions   *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	SoftFailures  *prometheus.CounterVec
}

// New registers the collectors, plus Go and process collectors, on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extractions by outcome (success, failure) and kind (structured, generic or failure kind).",
		}, []string{"outcome", "kind"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent in one fetch tier.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}, []string{"tier", "result"}),
		SoftFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "soft_failures_total",
			Help:      "Fetches rejected after transport success, by kind.",
		}, []string{"kind"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveFetch(tier, result string, elapsed time.Duration) {
	m.FetchDuration.WithLabelValues(tier, result).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordSuccess(kind string) {
	m.Extractions.WithLabelValues("success", kind).Inc()
}

func (m *Metrics) RecordFailure(kind string) {
	m.Extractions.WithLabelValues("failure", kind).Inc()
}

func (m *Metrics) RecordSoftFailure(kind string) {
	m.SoftFailures.WithLabelValues(kind).Inc()
}
