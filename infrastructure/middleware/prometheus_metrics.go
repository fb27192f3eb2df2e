// Package middleware provides cross-cutting infrastructure for the
// extraction harness, currently the Prometheus-backed metrics collector
// wired into the LLM client chain and the orchestrator.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/structured-trts/sentenca/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector on Prometheus. It
// exposes the request-level series emitted by the LLM metrics middleware
// and the task-level series emitted by the orchestrator.
type PrometheusMetrics struct {
	llmRequests      *prometheus.CounterVec
	llmTokens        *prometheus.CounterVec
	llmLatency       *prometheus.HistogramVec
	extractionTasks  *prometheus.CounterVec
	extractionTiming *prometheus.HistogramVec
	operationLatency *prometheus.HistogramVec
	eventCounter     *prometheus.CounterVec
	stateGauges      *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a collector registered on reg. A nil
// registerer selects the default global registry. Tests pass a fresh
// registry so repeated construction does not collide.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Provider requests, labeled with the classified outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Tokens consumed on successful provider requests.",
			},
			[]string{"provider", "model", "token_type"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_latency_seconds",
				Help:    "Provider request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model", "status"},
		),
		extractionTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extraction_tasks_total",
				Help: "Extraction tasks, labeled with success or failure kind.",
			},
			[]string{"model", "outcome"},
		),
		extractionTiming: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extraction_task_seconds",
				Help:    "Wall-clock time per extraction task, failures included.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
			[]string{"model", "outcome"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harness_operation_duration_seconds",
				Help:    "Execution time of harness operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		eventCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harness_events_total",
				Help: "Counter events without a dedicated metric family.",
			},
			[]string{"event"},
		),
		stateGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "harness_state",
				Help: "Current state values, such as tasks in flight.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements ports.MetricsCollector, routing the series the
// harness emits onto their dedicated metric families.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_requests_total":
		pm.llmRequests.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Add(value)
	case "llm_tokens_total":
		pm.llmTokens.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "token_type"),
		).Add(value)
	case "extraction_tasks_total":
		pm.extractionTasks.WithLabelValues(
			label(labels, "model"),
			label(labels, "outcome"),
		).Add(value)
	default:
		pm.eventCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.stateGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_latency_seconds":
		pm.llmLatency.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Observe(value)
	case "extraction_task_seconds":
		pm.extractionTiming.WithLabelValues(
			label(labels, "model"),
			label(labels, "outcome"),
		).Observe(value)
	default:
		pm.operationLatency.WithLabelValues(metric).Observe(value)
	}
}

// label reads a label value, defaulting to "unknown" so a missing label
// never produces an empty series.
func label(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
