package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for the API request surface
type HTTPMetrics struct {
	registry *prometheus.Registry

	requestsTotal       *prometheus.CounterVec
	requestDurationSecs *prometheus.HistogramVec
	responseErrorsTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewHTTPMetrics creates and registers new HTTP request metrics
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() error {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	m.requestDurationSecs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.responseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_response_errors_total",
			Help: "Total number of HTTP error responses by status code",
		},
		[]string{"status"},
	)

	m.collectors = []prometheus.Collector{
		m.requestsTotal,
		m.requestDurationSecs,
		m.responseErrorsTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordRequest records a completed request. Path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func (m *HTTPMetrics) RecordRequest(method, path string, status int, durationSecs float64) {
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, path, code).Inc()
	m.requestDurationSecs.WithLabelValues(method, path).Observe(durationSecs)
	if status >= 400 {
		m.responseErrorsTotal.WithLabelValues(code).Inc()
	}
}
