package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StationMetrics contains Prometheus metrics for reference table loading and
// station queries. It implements Recorder.
type StationMetrics struct {
	registry *prometheus.Registry

	// Load metrics
	loadsTotal    *prometheus.CounterVec
	loadDuration  prometheus.Histogram
	tableRows     prometheus.Gauge
	synonymsTotal prometheus.Gauge

	// Primary source fetch metrics
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	fetchBytes    prometheus.Gauge

	// Query metrics
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	queryCache    *prometheus.CounterVec

	// Generic errors by operation
	errorsTotal *prometheus.CounterVec
}

// NewStationMetrics creates and registers new station metrics
func NewStationMetrics(registry *prometheus.Registry) (*StationMetrics, error) {
	m := &StationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *StationMetrics) initMetrics() {
	m.loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stations_loads_total",
			Help: "Total number of reference table loads",
		},
		[]string{"source", "status"}, // source: primary, backup, none
	)

	m.loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stations_load_duration_seconds",
			Help:    "Time taken to read, parse and index the reference table",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		},
	)

	m.tableRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stations_table_rows",
			Help: "Number of rows in the loaded reference table",
		},
	)

	m.synonymsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stations_synonym_index_size",
			Help: "Number of keys in the synonym index",
		},
	)

	m.fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stations_primary_fetches_total",
			Help: "Total number of primary source downloads",
		},
		[]string{"status"},
	)

	m.fetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stations_primary_fetch_duration_seconds",
			Help:    "Time taken to download the primary source",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
		},
	)

	m.fetchBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stations_primary_fetch_bytes",
			Help: "Size of the last downloaded primary source",
		},
	)

	m.queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stations_queries_total",
			Help: "Total number of station queries",
		},
		[]string{"operation", "result"}, // result: found, not_found, invalid
	)

	m.queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stations_query_duration_seconds",
			Help:    "Time taken to answer station queries",
			Buckets: prometheus.ExponentialBuckets(BucketStart10us, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.queryCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stations_query_cache_total",
			Help: "Nearest-station result cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stations_errors_total",
			Help: "Total number of station service errors",
		},
		[]string{"operation", "error_type"},
	)
}

func (m *StationMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.loadsTotal,
		m.loadDuration,
		m.tableRows,
		m.synonymsTotal,
		m.fetchesTotal,
		m.fetchDuration,
		m.fetchBytes,
		m.queriesTotal,
		m.queryDuration,
		m.queryCache,
		m.errorsTotal,
	}
}

// Describe implements the prometheus.Collector interface
func (m *StationMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface
func (m *StationMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordLoad records a finished table load
func (m *StationMetrics) RecordLoad(source, status string, seconds float64, rows, synonyms int) {
	m.loadsTotal.WithLabelValues(source, status).Inc()
	if status != StatusSuccess {
		return
	}
	m.loadDuration.Observe(seconds)
	m.tableRows.Set(float64(rows))
	m.synonymsTotal.Set(float64(synonyms))
}

// RecordFetch records a primary source download
func (m *StationMetrics) RecordFetch(status string, seconds float64, sizeBytes int) {
	m.fetchesTotal.WithLabelValues(status).Inc()
	m.fetchDuration.Observe(seconds)
	if status == StatusSuccess {
		m.fetchBytes.Set(float64(sizeBytes))
	}
}

// RecordQueryCache records a nearest-station cache lookup
func (m *StationMetrics) RecordQueryCache(hit bool) {
	result := ResultCacheMiss
	if hit {
		result = ResultCacheHit
	}
	m.queryCache.WithLabelValues(result).Inc()
}

// RecordOperation implements Recorder; status is the query result label
func (m *StationMetrics) RecordOperation(operation, status string) {
	m.queriesTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder
func (m *StationMetrics) RecordDuration(operation string, seconds float64) {
	m.queryDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder
func (m *StationMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}
