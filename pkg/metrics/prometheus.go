// Package metrics provides Prometheus metrics for the Artemis profile service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	sessionsSubmitted  prometheus.Counter
	sessionsIngested   *prometheus.CounterVec
	sessionsDuplicate  prometheus.Counter
	sessionsRejected   *prometheus.CounterVec
	aggregationLatency prometheus.Histogram
	compositeIQ        prometheus.Histogram
	totalProfiles      prometheus.Gauge

	// Persistence
	storeLatency     *prometheus.HistogramVec
	storeErrors      *prometheus.CounterVec
	versionConflicts prometheus.Counter

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            *prometheus.CounterVec

	// Reasoning estimator and tutor
	estimatorCalls     *prometheus.CounterVec
	estimatorFallbacks prometheus.Counter
	llmLatency         *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "artemis",
		subsystem:        "profile",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.sessionsSubmitted = m.counter("sessions_submitted_total", "Game sessions accepted for asynchronous ingestion")
	m.sessionsIngested = m.counterVec("sessions_ingested_total", "Game sessions folded into a profile", "game_type")
	m.sessionsDuplicate = m.counter("sessions_duplicate_total", "Game session submissions rejected as duplicates")
	m.sessionsRejected = m.counterVec("sessions_rejected_total", "Game session submissions rejected before ingestion", "reason")
	m.aggregationLatency = m.histogram("aggregation_latency_milliseconds", "Latency of a single profile aggregation", m.histogramBuckets)
	m.compositeIQ = m.histogram("composite_iq", "Distribution of composite IQ values after ingestion",
		[]float64{70, 80, 90, 100, 110, 120, 130, 140, 150})
	m.totalProfiles = m.gauge("total_profiles", "Number of persisted profiles")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Profile store operation latency", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Profile store operation failures", "op")
	m.versionConflicts = m.counter("store_version_conflicts_total", "Optimistic concurrency conflicts on profile save")

	m.queueSize = m.gauge("queue_size", "Current number of queued session submissions")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued session submissions")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue length divided by capacity")

	m.workerCount = m.gauge("worker_count", "Number of ingestion workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Latency of a worker handling one submission", m.histogramBuckets)
	m.workerErrors = m.counterVec("worker_errors_total", "Worker failures by kind", "kind")

	m.estimatorCalls = m.counterVec("estimator_calls_total", "Reasoning-quality assessments by source", "source")
	m.estimatorFallbacks = m.counter("estimator_fallbacks_total", "Reasoning-quality assessments that fell back to a weaker source")
	m.llmLatency = m.histogramVec("llm_latency_milliseconds", "Language model call latency", "task", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP responses with status >= 400", "endpoint", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// RecordSessionSubmitted increments the accepted-submission counter.
func RecordSessionSubmitted() { globalManager.sessionsSubmitted.Inc() }

// RecordSessionIngested increments the ingested counter for a game type.
func RecordSessionIngested(gameType string) {
	globalManager.sessionsIngested.WithLabelValues(gameType).Inc()
}

// RecordSessionDuplicate increments the duplicate-submission counter.
func RecordSessionDuplicate() { globalManager.sessionsDuplicate.Inc() }

// RecordSessionRejected increments the rejected-submission counter.
func RecordSessionRejected(reason string) {
	globalManager.sessionsRejected.WithLabelValues(reason).Inc()
}

// RecordAggregationLatency records one aggregation in milliseconds.
func RecordAggregationLatency(ms float64) { globalManager.aggregationLatency.Observe(ms) }

// RecordCompositeIQ records the IQ produced by an aggregation.
func RecordCompositeIQ(iq int) { globalManager.compositeIQ.Observe(float64(iq)) }

// UpdateTotalProfiles sets the persisted profile gauge.
func UpdateTotalProfiles(n int) { globalManager.totalProfiles.Set(float64(n)) }

// RecordStoreLatency records a profile store operation latency.
func RecordStoreLatency(op string, ms float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(ms)
}

// RecordStoreError increments the store failure counter for op.
func RecordStoreError(op string) { globalManager.storeErrors.WithLabelValues(op).Inc() }

// RecordVersionConflict increments the optimistic concurrency conflict counter.
func RecordVersionConflict() { globalManager.versionConflicts.Inc() }

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(n int) { globalManager.queueSize.Set(float64(n)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// RecordWorkerProcessingLatency records how long a worker spent on one submission.
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }

// RecordWorkerError increments the worker failure counter.
func RecordWorkerError(kind string) { globalManager.workerErrors.WithLabelValues(kind).Inc() }

// RecordEstimatorCall counts an assessment produced by source.
func RecordEstimatorCall(source string) { globalManager.estimatorCalls.WithLabelValues(source).Inc() }

// RecordEstimatorFallback counts an assessment that did not come from the preferred source.
func RecordEstimatorFallback() { globalManager.estimatorFallbacks.Inc() }

// RecordLLMLatency records a language model call.
func RecordLLMLatency(task, outcome string, ms float64) {
	globalManager.llmLatency.WithLabelValues(task, outcome).Observe(ms)
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordHTTPError counts an HTTP error response.
func RecordHTTPError(endpoint, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// GetRegistry returns the registry that holds the service metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
