// Package metrics provides Prometheus metrics for the performance ranking
// and recommendation workflow engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	// Scoring and ranking
	rankingsComputed prometheus.Counter
	rankingLatency   prometheus.Histogram
	scoringErrors    prometheus.Counter
	athletesExcluded prometheus.Counter

	// Workflow
	recommendationsGenerated *prometheus.CounterVec
	transitionsApplied       *prometheus.CounterVec
	transitionsRejected      *prometheus.CounterVec

	// Dispatch
	notificationsDispatched *prometheus.CounterVec
	notificationsDeduped    prometheus.Counter
	dispatchLatency         prometheus.Histogram
	dispatchErrors          prometheus.Counter

	// Trigger scan
	scansStarted prometheus.Counter
	scanErrors   prometheus.Counter

	// Operational health
	queueSize   prometheus.Gauge
	workerCount prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with configuration options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "podio",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.rankingsComputed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rankings_computed_total",
		Help:      "Number of full-category ranking computations.",
	})
	m.rankingLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "ranking_latency_ms",
		Help:      "Latency of ranking computations in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
	m.scoringErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scoring_errors_total",
		Help:      "Number of scoring failures.",
	})
	m.athletesExcluded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "athletes_excluded_total",
		Help:      "Athletes excluded from ranking for lack of qualifying tests.",
	})

	m.recommendationsGenerated = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "recommendations_generated_total",
		Help:      "Recommendations generated, labeled by trigger kind.",
	}, []string{"trigger"})
	m.transitionsApplied = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "workflow_transitions_total",
		Help:      "Workflow transitions applied, labeled by operation and resulting state.",
	}, []string{"op", "estado"})
	m.transitionsRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "workflow_transitions_rejected_total",
		Help:      "Workflow transitions rejected by a guard, labeled by operation.",
	}, []string{"op"})

	m.notificationsDispatched = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "notifications_dispatched_total",
		Help:      "Notifications created, labeled by type and priority.",
	}, []string{"type", "priority"})
	m.notificationsDeduped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "notifications_deduped_total",
		Help:      "Deliveries suppressed by the (event, recipient) dedupe.",
	})
	m.dispatchLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "dispatch_latency_ms",
		Help:      "Latency of event dispatch in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
	})
	m.dispatchErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "dispatch_errors_total",
		Help:      "Failed event dispatches.",
	})

	m.scansStarted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "trigger_scans_total",
		Help:      "Trigger re-scans started.",
	})
	m.scanErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "trigger_scan_errors_total",
		Help:      "Trigger re-scans that failed.",
	})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "event_queue_size",
		Help:      "Current number of events waiting for dispatch.",
	})
	m.workerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "worker_count",
		Help:      "Number of dispatch workers.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests, labeled by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"endpoint", "method", "status"})

	return m
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers against the global manager.

func RecordRankingComputed() { globalManager.rankingsComputed.Inc() }

func RecordRankingLatency(ms float64) { globalManager.rankingLatency.Observe(ms) }

func RecordScoringError() { globalManager.scoringErrors.Inc() }

func RecordAthleteExcluded() { globalManager.athletesExcluded.Inc() }
func RecordRecommendationGenerated(trigger string) {
	globalManager.recommendationsGenerated.WithLabelValues(trigger).Inc()
}
func RecordTransitionApplied(op, estado string) {
	globalManager.transitionsApplied.WithLabelValues(op, estado).Inc()
}
func RecordTransitionRejected(op string) {
	globalManager.transitionsRejected.WithLabelValues(op).Inc()
}
func RecordNotificationDispatched(ntype, priority string) {
	globalManager.notificationsDispatched.WithLabelValues(ntype, priority).Inc()
}
func RecordNotificationDeduped() { globalManager.notificationsDeduped.Inc() }

func RecordDispatchLatency(ms float64) { globalManager.dispatchLatency.Observe(ms) }

func RecordDispatchError() { globalManager.dispatchErrors.Inc() }

func RecordScanStarted() { globalManager.scansStarted.Inc() }

func RecordScanError() { globalManager.scanErrors.Inc() }

func UpdateQueueSize(n int) { globalManager.queueSize.Set(float64(n)) }

func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}
func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}
