package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the client metrics
type Metrics struct {
	// Catalog (metadata service) request metrics
	CatalogRequestTotal    *prometheus.CounterVec
	CatalogRequestDuration *prometheus.HistogramVec

	// User-backend request metrics
	BackendRequestTotal    *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec

	// Aggregation id-resolution metrics
	ResolutionTotal *prometheus.CounterVec

	// Session lifecycle metrics
	SessionTransitionTotal *prometheus.CounterVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics creates a new Metrics instance with all required metrics
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	// Return existing instance if already created
	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		// Catalog request metrics
		CatalogRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviebuzz_catalog_requests_total",
			Help: "Total number of metadata service requests",
		}, []string{"operation", "status"}),

		CatalogRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moviebuzz_catalog_request_duration_seconds",
			Help:    "Metadata service request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),

		// Backend request metrics
		BackendRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviebuzz_backend_requests_total",
			Help: "Total number of user-backend requests",
		}, []string{"resource", "method", "status"}),

		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moviebuzz_backend_request_duration_seconds",
			Help:    "User-backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource", "method", "status"}),

		// Aggregation resolution metrics
		ResolutionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviebuzz_resolution_total",
			Help: "Total number of movie id resolutions issued by the aggregation layer",
		}, []string{"status"}),

		// Session lifecycle metrics
		SessionTransitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moviebuzz_session_transitions_total",
			Help: "Total number of session state transitions",
		}, []string{"to"}),
	}

	// Register metrics with the default registry
	registerMetrics(m)

	// Store as global instance
	globalMetrics = m

	return m
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	// Try to register each metric, ignore if already registered
	registerOrGet(m.CatalogRequestTotal)
	registerOrGet(m.CatalogRequestDuration)
	registerOrGet(m.BackendRequestTotal)
	registerOrGet(m.BackendRequestDuration)
	registerOrGet(m.ResolutionTotal)
	registerOrGet(m.SessionTransitionTotal)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		// If already registered, return the existing collector
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
