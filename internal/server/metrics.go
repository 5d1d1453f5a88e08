package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the HTTP service. They live on their own
// registry so several servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ClassificationsTotal *prometheus.CounterVec
	ClassifyErrorsTotal  *prometheus.CounterVec
	ConfidenceScore      prometheus.Histogram
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamsift_http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spamsift_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "spamsift_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ClassificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamsift_classifications_total",
				Help: "Classified texts by predicted label.",
			},
			[]string{"label"},
		),
		ClassifyErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamsift_classify_errors_total",
				Help: "Failed classifications by kind (validation, model, internal).",
			},
			[]string{"kind"},
		),
		ConfidenceScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spamsift_confidence_score",
				Help:    "Confidence of returned predictions.",
				Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99, 0.999},
			},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ClassificationsTotal,
		m.ClassifyErrorsTotal,
		m.ConfidenceScore,
	)
	return m
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
