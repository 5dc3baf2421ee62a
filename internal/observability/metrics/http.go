package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for the query API
type HTTPMetrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestErrors   *prometheus.CounterVec
	httpResponseSize    *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers new HTTP handler metrics
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *HTTPMetrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"}, // path is the route template, e.g. /api/v1/stations/:name
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.httpRequestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Total number of HTTP request errors",
		},
		[]string{"method", "path", "error_type"}, // error_type: validation, not_found, system
	)

	m.httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B to ~1MB
		},
		[]string{"method", "path"},
	)
}

func (m *HTTPMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestErrors,
		m.httpResponseSize,
	}
}

// Describe implements the prometheus.Collector interface
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordHTTPRequest records an HTTP request
func (m *HTTPMetrics) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordHTTPRequestError records an HTTP request error
func (m *HTTPMetrics) RecordHTTPRequestError(method, path, errorType string) {
	m.httpRequestErrors.WithLabelValues(method, path, errorType).Inc()
}

// RecordHTTPResponseSize records HTTP response size
func (m *HTTPMetrics) RecordHTTPResponseSize(method, path string, sizeBytes int64) {
	m.httpResponseSize.WithLabelValues(method, path).Observe(float64(sizeBytes))
}
