// Package metrics provides Prometheus metrics for the scout dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scout service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// HTTP Performance Metrics - dashboard pages and mock API
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Backend Client Metrics - outbound REST calls
	backendRequests        *prometheus.CounterVec
	backendRequestDuration *prometheus.HistogramVec

	// Controller Metrics - list fetch bookkeeping
	staleResponses   *prometheus.CounterVec
	fetchesCancelled prometheus.Counter
	controllerErrors *prometheus.CounterVec

	// Session Metrics
	sessionEvents *prometheus.CounterVec

	// Workspace Metrics - per-visitor state
	workspacesActive   prometheus.Gauge
	workspaceEvictions prometheus.Counter

	// Routing Metrics
	deviceClassifications *prometheus.CounterVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

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
		namespace:        "scout",
		subsystem:        "dashboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.backendRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "backend_requests_total",
			Help:        "Total number of REST backend calls by operation and outcome",
			ConstLabels: m.constLabels,
		},
		[]string{"operation", "status_code"},
	)

	m.backendRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "backend_request_duration_milliseconds",
			Help:        "REST backend call latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"operation"},
	)

	m.staleResponses = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "stale_responses_total",
			Help:        "Responses discarded because a newer request was issued",
			ConstLabels: m.constLabels,
		},
		[]string{"resource"},
	)

	m.fetchesCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetches_cancelled_total",
		Help:        "In-flight list fetches cancelled by a newer fetch or a closed workspace",
		ConstLabels: m.constLabels,
	})

	m.controllerErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "controller_errors_total",
			Help:        "Failed prospect controller operations",
			ConstLabels: m.constLabels,
		},
		[]string{"operation"},
	)

	m.sessionEvents = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "session_events_total",
			Help:        "Session lifecycle events by kind and outcome",
			ConstLabels: m.constLabels,
		},
		[]string{"event", "outcome"},
	)

	m.workspacesActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "workspaces_active",
		Help:        "Visitor workspaces currently held in memory",
		ConstLabels: m.constLabels,
	})

	m.workspaceEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "workspace_evictions_total",
		Help:        "Visitor workspaces evicted to respect the registry bound",
		ConstLabels: m.constLabels,
	})

	m.deviceClassifications = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "device_classifications_total",
			Help:        "Requests by detected device class",
			ConstLabels: m.constLabels,
		},
		[]string{"class"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: m.constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Total number of errors by endpoint",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordBackendRequest records one REST backend call.
func (m *Manager) RecordBackendRequest(operation, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.backendRequests.WithLabelValues(operation, statusCode).Inc()
	m.backendRequestDuration.WithLabelValues(operation).Observe(durationMs)
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordBackendRequest records one REST backend call.
func RecordBackendRequest(operation, statusCode string, durationMs float64) {
	globalManager.RecordBackendRequest(operation, statusCode, durationMs)
}

// RecordStaleResponse counts a response dropped by the sequence guard.
func RecordStaleResponse(resource string) {
	if globalManager.enabled {
		globalManager.staleResponses.WithLabelValues(resource).Inc()
	}
}

// RecordFetchCancelled counts a cancelled in-flight list fetch.
func RecordFetchCancelled() {
	if globalManager.enabled {
		globalManager.fetchesCancelled.Inc()
	}
}

// RecordControllerError counts a failed controller operation.
func RecordControllerError(operation string) {
	if globalManager.enabled {
		globalManager.controllerErrors.WithLabelValues(operation).Inc()
	}
}

// RecordSessionEvent counts a session lifecycle event, e.g. ("login", "success").
func RecordSessionEvent(event, outcome string) {
	if globalManager.enabled {
		globalManager.sessionEvents.WithLabelValues(event, outcome).Inc()
	}
}

// UpdateWorkspacesActive sets the number of live workspaces.
func UpdateWorkspacesActive(count int64) {
	if globalManager.enabled {
		globalManager.workspacesActive.Set(float64(count))
	}
}

// RecordWorkspaceEviction counts an evicted workspace.
func RecordWorkspaceEviction() {
	if globalManager.enabled {
		globalManager.workspaceEvictions.Inc()
	}
}

// RecordDeviceClass counts a request classified as class.
func RecordDeviceClass(class string) {
	if globalManager.enabled {
		globalManager.deviceClassifications.WithLabelValues(class).Inc()
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
