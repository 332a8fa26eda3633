// Package metrics provides Prometheus metrics for the skillmatch service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the skillmatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Enrichment - background tag derivation
	enrichmentJobs     *prometheus.CounterVec
	enrichmentInFlight prometheus.Gauge
	enrichmentLatency  prometheus.Histogram

	// Expansion - calls to the semantic-expansion service
	expansionRequests *prometheus.CounterVec
	expansionLatency  *prometheus.HistogramVec
	expansionCache    *prometheus.CounterVec

	// Recommendation
	recommendRequests *prometheus.CounterVec
	recommendMatches  *prometheus.HistogramVec
	passSkipped       *prometheus.CounterVec

	// Store
	storeLatency  *prometheus.HistogramVec
	storeEntities *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skillmatch",
		subsystem:        "",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often callers should publish gauge snapshots.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every series
	auto := promauto.With(m.registry)

	m.enrichmentJobs = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "enrichment_jobs_total",
			Help:      "Enrichment jobs by entity kind and outcome (tagged, empty, missing, store_error)",
		},
		[]string{"kind", "outcome"},
	)

	m.enrichmentInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_in_flight",
		Help:      "Enrichment jobs currently running",
	})

	m.enrichmentLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichment_duration_milliseconds",
		Help:      "End-to-end enrichment job duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.expansionRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "expansion_requests_total",
			Help:      "Calls to the expansion service by operation and result",
		},
		[]string{"operation", "result"},
	)

	m.expansionLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "expansion_latency_milliseconds",
			Help:      "Expansion service round-trip latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"operation"},
	)

	m.expansionCache = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "expansion_cache_total",
			Help:      "Expansion cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	m.recommendRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "recommend_requests_total",
			Help:      "Recommendation requests by target",
		},
		[]string{"target"},
	)

	m.recommendMatches = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "recommend_candidates",
			Help:      "Number of candidates returned per recommendation request",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"target"},
	)

	m.passSkipped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "recommend_pass_skipped_total",
			Help:      "Recommendation passes skipped because keyword expansion failed",
		},
		[]string{"target", "pass"},
	)

	m.storeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_latency_milliseconds",
			Help:      "Entity store operation latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"operation"},
	)

	m.storeEntities = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_entities",
			Help:      "Stored entities by kind",
		},
		[]string{"kind"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Enrichment.

// RecordEnrichmentJob counts a finished enrichment job.
func RecordEnrichmentJob(kind, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.enrichmentJobs.WithLabelValues(kind, outcome).Inc()
}

// EnrichmentStarted bumps the in-flight gauge.
func EnrichmentStarted() { globalManager.enrichmentInFlight.Inc() }

// EnrichmentFinished drops the in-flight gauge and records the job duration.
func EnrichmentFinished(latencyMs float64) {
	globalManager.enrichmentInFlight.Dec()
	if globalManager.enabled {
		globalManager.enrichmentLatency.Observe(latencyMs)
	}
}

// Expansion.

// RecordExpansionRequest records one call to the expansion service.
func RecordExpansionRequest(operation, result string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.expansionRequests.WithLabelValues(operation, result).Inc()
	globalManager.expansionLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordExpansionCache records a cache lookup result.
func RecordExpansionCache(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.expansionCache.WithLabelValues(result).Inc()
}

// Recommendation.

// RecordRecommendation records a served recommendation and its size.
func RecordRecommendation(target string, candidates int) {
	if !globalManager.enabled {
		return
	}
	globalManager.recommendRequests.WithLabelValues(target).Inc()
	globalManager.recommendMatches.WithLabelValues(target).Observe(float64(candidates))
}

// RecordPassSkipped counts a pass dropped after an expansion failure.
func RecordPassSkipped(target, pass string) {
	if !globalManager.enabled {
		return
	}
	globalManager.passSkipped.WithLabelValues(target, pass).Inc()
}

// Store.

// RecordStoreLatency records a store operation latency.
func RecordStoreLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateStoreEntities sets the stored entity count for kind.
func UpdateStoreEntities(kind string, count int) {
	globalManager.storeEntities.WithLabelValues(kind).Set(float64(count))
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// SinceMs returns the milliseconds elapsed since start.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// RefreshInterval returns the refresh interval of the global manager.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
