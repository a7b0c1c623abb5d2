// Package metrics provides Prometheus metrics for the auth client and the stub server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default latency buckets in milliseconds.
var defaultBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000} //nolint:gochecknoglobals // read-only defaults

// Manager owns every collector the module exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Outbound requests issued by the executor
	clientRequests        *prometheus.CounterVec
	clientRequestDuration *prometheus.HistogramVec
	clientErrors          *prometheus.CounterVec
	repeatSubmitBlocked   *prometheus.CounterVec
	tokenAttached         prometheus.Counter
	rateLimitWait         prometheus.Histogram

	// Inbound requests served by the stub server
	serverRequests        *prometheus.CounterVec
	serverRequestDuration *prometheus.HistogramVec
	serverLogins          *prometheus.CounterVec
	serverActiveSessions  prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Collectors are registered on the
// configured registry (prometheus.DefaultRegisterer unless overridden).
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "authclient",
		subsystem:        "",
		histogramBuckets: defaultBuckets,
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.clientRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "client_requests_total",
		Help:        "Outbound requests by endpoint, method and HTTP status",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.clientRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "client_request_duration_milliseconds",
		Help:        "Outbound request round trip in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method"})

	m.clientErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "client_errors_total",
		Help:        "Outbound request failures by error kind",
		ConstLabels: labels,
	}, []string{"kind"})

	m.repeatSubmitBlocked = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "repeat_submit_blocked_total",
		Help:        "Submissions suppressed as duplicates before reaching the network",
		ConstLabels: labels,
	}, []string{"endpoint"})

	m.tokenAttached = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "token_attached_total",
		Help:        "Outbound requests that carried a bearer token",
		ConstLabels: labels,
	})

	m.rateLimitWait = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rate_limit_wait_milliseconds",
		Help:        "Time spent waiting on the client-side rate limiter",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.serverRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "stub",
		Name:        "http_requests_total",
		Help:        "Requests served by the stub server by endpoint, method and status",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.serverRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "stub",
		Name:        "http_request_duration_milliseconds",
		Help:        "Stub server handler latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method"})

	m.serverLogins = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "stub",
		Name:        "logins_total",
		Help:        "Login attempts handled by the stub server by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.serverActiveSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "stub",
		Name:        "active_sessions",
		Help:        "Sessions currently held by the stub server",
		ConstLabels: labels,
	})
}

// RecordClientRequest records one completed outbound request.
func (m *Manager) RecordClientRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.clientRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.clientRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// RecordClientError counts a failed outbound request by kind.
func (m *Manager) RecordClientError(kind string) {
	if !m.enabled {
		return
	}
	m.clientErrors.WithLabelValues(kind).Inc()
}

// RecordRepeatSubmitBlocked counts a suppressed duplicate submission.
func (m *Manager) RecordRepeatSubmitBlocked(endpoint string) {
	if !m.enabled {
		return
	}
	m.repeatSubmitBlocked.WithLabelValues(endpoint).Inc()
}

// RecordTokenAttached counts a request that carried a bearer token.
func (m *Manager) RecordTokenAttached() {
	if !m.enabled {
		return
	}
	m.tokenAttached.Inc()
}

// RecordRateLimitWait observes limiter wait time.
func (m *Manager) RecordRateLimitWait(waitMs float64) {
	if !m.enabled {
		return
	}
	m.rateLimitWait.Observe(waitMs)
}

// RecordServerRequest records one request served by the stub server.
func (m *Manager) RecordServerRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.serverRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.serverRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// RecordServerLogin counts a login attempt by outcome.
func (m *Manager) RecordServerLogin(outcome string) {
	if !m.enabled {
		return
	}
	m.serverLogins.WithLabelValues(outcome).Inc()
}

// UpdateServerActiveSessions sets the live session gauge.
func (m *Manager) UpdateServerActiveSessions(n int) {
	if !m.enabled {
		return
	}
	m.serverActiveSessions.Set(float64(n))
}

// Package-level helpers forward to the global manager.

// RecordClientRequest records one completed outbound request.
func RecordClientRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordClientRequest(endpoint, method, statusCode, durationMs)
}

// RecordClientError counts a failed outbound request by kind.
func RecordClientError(kind string) { globalManager.RecordClientError(kind) }

// RecordRepeatSubmitBlocked counts a suppressed duplicate submission.
func RecordRepeatSubmitBlocked(endpoint string) { globalManager.RecordRepeatSubmitBlocked(endpoint) }

// RecordTokenAttached counts a request that carried a bearer token.
func RecordTokenAttached() { globalManager.RecordTokenAttached() }

// RecordRateLimitWait observes limiter wait time in milliseconds.
func RecordRateLimitWait(waitMs float64) { globalManager.RecordRateLimitWait(waitMs) }

// RecordServerRequest records one request served by the stub server.
func RecordServerRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordServerRequest(endpoint, method, statusCode, durationMs)
}

// RecordServerLogin counts a stub login attempt by outcome.
func RecordServerLogin(outcome string) { globalManager.RecordServerLogin(outcome) }

// UpdateServerActiveSessions sets the stub session gauge.
func UpdateServerActiveSessions(n int) { globalManager.UpdateServerActiveSessions(n) }

// Default returns the global manager backing the package-level helpers.
func Default() *Manager {
	return globalManager
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler exposes the custom registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
