package proxy

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the proxy's Prometheus collectors. Each Server owns its own
// registry so several servers can live in one process.
type Metrics struct {
	registry        *prometheus.Registry
	Requests        *prometheus.CounterVec
	Latency         *prometheus.HistogramVec
	Redirects       prometheus.Counter
	FragmentEntries prometheus.Histogram
}

// NewMetrics creates and registers the proxy metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bibproxy_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"route", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bibproxy_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bibproxy_citation_redirects_total",
			Help: "Citation redirects issued.",
		}),
		FragmentEntries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bibproxy_fragment_entries",
			Help:    "Entries per rendered bibliography fragment.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
	m.registry.MustRegister(m.Requests, m.Latency, m.Redirects, m.FragmentEntries)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
