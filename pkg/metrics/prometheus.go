package metrics

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the league service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Discipline
	cardsCollected     *prometheus.CounterVec
	eventsSkipped      *prometheus.CounterVec
	suspensionsApplied *prometheus.CounterVec
	suspensionsServed  prometheus.Counter
	activeSuspensions  prometheus.Gauge

	// Season lifecycle
	seasonCloses        *prometheus.CounterVec
	seasonCloseDuration prometheus.Histogram
	seasonStepFailures  *prometheus.CounterVec
	recordsPersisted    prometheus.Counter

	// Check-in
	checkIns              *prometheus.CounterVec
	attendanceTransitions *prometheus.CounterVec

	// Status cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheSize   prometheus.Gauge

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryQueryLatency *prometheus.HistogramVec
	repositoryEvents       prometheus.Gauge

	// Errors and runtime
	errorsByComponent    *prometheus.CounterVec
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "sideline",
		subsystem:        "league",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics on the configured registry.
func (m *Manager) initializeMetrics() {
	m.cardsCollected = m.counterVec("cards_collected_total", "Cards flattened from match data by card type", "card_type")
	m.eventsSkipped = m.counterVec("events_skipped_total", "Events skipped during card collection by reason", "reason")
	m.suspensionsApplied = m.counterVec("suspensions_applied_total", "Suspensions created by trigger kind", "trigger")
	m.suspensionsServed = m.counter("suspensions_served_total", "Suspensions transitioned to served")
	m.activeSuspensions = m.gauge("active_suspensions", "Current number of active suspensions")

	m.seasonCloses = m.counterVec("season_close_total", "Season close attempts by result", "result")
	m.seasonCloseDuration = m.histogram("season_close_duration_milliseconds", "Duration of successful season closes")
	m.seasonStepFailures = m.counterVec("season_close_step_failures_total", "Season close failures by step", "step")
	m.recordsPersisted = m.counter("disciplinary_records_persisted_total", "Disciplinary records written by season closes")

	m.checkIns = m.counterVec("checkins_total", "Check-in attempts by result", "result")
	m.attendanceTransitions = m.counterVec("attendance_transitions_total", "Attendance toggles by final state", "state")

	m.cacheHits = m.counter("status_cache_hits_total", "Suspension status cache hits")
	m.cacheMisses = m.counter("status_cache_misses_total", "Suspension status cache misses")
	m.cacheSize = m.gauge("status_cache_size", "Entries held by the suspension status cache")

	m.queueSize = m.gauge("queue_size", "Current size of the attendance check queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the attendance check queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Attendance checks enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Attendance checks dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Attendance checks rejected by the queue")
	m.workerCount = m.gauge("worker_count", "Number of attendance check workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Attendance check processing latency")
	m.workerErrors = m.counter("worker_errors_total", "Attendance checks that failed to process")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.repositoryQueryLatency = m.histogramVec("repository_query_latency_milliseconds", "Repository operation latency", "operation")
	m.repositoryEvents = m.gauge("repository_events", "Events currently held in the current season list")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// RecordCardsCollected adds n collected cards of the given type.
func RecordCardsCollected(cardType string, n int) {
	globalManager.cardsCollected.WithLabelValues(cardType).Add(float64(n))
}

// RecordEventSkipped records an event dropped during card collection.
func RecordEventSkipped(reason string) {
	globalManager.eventsSkipped.WithLabelValues(reason).Inc()
}

// RecordSuspensionApplied records a new suspension for the trigger kind.
func RecordSuspensionApplied(trigger string) {
	globalManager.suspensionsApplied.WithLabelValues(trigger).Inc()
}

// RecordSuspensionServed records a suspension reaching the served state.
func RecordSuspensionServed() {
	globalManager.suspensionsServed.Inc()
}

// UpdateActiveSuspensions sets the active suspension gauge.
func UpdateActiveSuspensions(count int) {
	globalManager.activeSuspensions.Set(float64(count))
}

// RecordSeasonClose records the outcome of a season close.
func RecordSeasonClose(result string) {
	globalManager.seasonCloses.WithLabelValues(result).Inc()
}

// RecordSeasonCloseDuration records the duration of a completed close.
func RecordSeasonCloseDuration(durationMs float64) {
	globalManager.seasonCloseDuration.Observe(durationMs)
}

// RecordSeasonStepFailure records the step at which a close failed.
func RecordSeasonStepFailure(step string) {
	globalManager.seasonStepFailures.WithLabelValues(step).Inc()
}

// RecordRecordsPersisted adds n disciplinary records written by a close.
func RecordRecordsPersisted(n int) {
	globalManager.recordsPersisted.Add(float64(n))
}

// RecordCheckIn records a check-in attempt result (allowed, blocked, error).
func RecordCheckIn(result string) {
	globalManager.checkIns.WithLabelValues(result).Inc()
}

// RecordAttendanceTransition records the terminal state of an attendance toggle.
func RecordAttendanceTransition(state string) {
	globalManager.attendanceTransitions.WithLabelValues(state).Inc()
}

// RecordCacheHit increments the status cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the status cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// UpdateCacheSize sets the status cache size gauge.
func UpdateCacheSize(size int) {
	globalManager.cacheSize.Set(float64(size))
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryQueryLatency records the latency of a repository operation.
func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateRepositoryEvents sets the number of stored current-season events.
func UpdateRepositoryEvents(count int) {
	globalManager.repositoryEvents.Set(float64(count))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Families returns the sorted names of metric families that have samples.
func Families() ([]string, error) {
	mfs, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	sort.Strings(names)
	return names, nil
}
