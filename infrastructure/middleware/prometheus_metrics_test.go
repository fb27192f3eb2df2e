package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structured-trts/sentenca/internal/ports"
)

func newTestMetrics() *PrometheusMetrics {
	// A fresh registry per test avoids duplicate registration panics.
	return NewPrometheusMetrics(prometheus.NewRegistry())
}

func TestNewPrometheusMetrics(t *testing.T) {
	pm := newTestMetrics()

	require.NotNil(t, pm)
	var _ ports.MetricsCollector = pm
}

func TestPrometheusMetrics_RoutesLLMRequestCounter(t *testing.T) {
	pm := newTestMetrics()
	labels := map[string]string{"provider": "openai", "model": "gpt-4o-mini", "status": "success"}

	pm.RecordCounter("llm_requests_total", 1, labels)
	pm.RecordCounter("llm_requests_total", 1, labels)

	got := testutil.ToFloat64(pm.llmRequests.WithLabelValues("openai", "gpt-4o-mini", "success"))
	assert.Equal(t, 2.0, got)
}

func TestPrometheusMetrics_RoutesTokenCounter(t *testing.T) {
	pm := newTestMetrics()

	pm.RecordCounter("llm_tokens_total", 321, map[string]string{
		"provider": "groq", "model": "llama-3.3-70b-versatile", "token_type": "input",
	})

	got := testutil.ToFloat64(pm.llmTokens.WithLabelValues("groq", "llama-3.3-70b-versatile", "input"))
	assert.Equal(t, 321.0, got)
}

func TestPrometheusMetrics_RoutesExtractionTaskCounter(t *testing.T) {
	pm := newTestMetrics()

	pm.RecordCounter("extraction_tasks_total", 1, map[string]string{"model": "gpt-4o-mini", "outcome": "success"})
	pm.RecordCounter("extraction_tasks_total", 1, map[string]string{"model": "gpt-4o-mini", "outcome": "parse_error"})

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.extractionTasks.WithLabelValues("gpt-4o-mini", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.extractionTasks.WithLabelValues("gpt-4o-mini", "parse_error")))
}

func TestPrometheusMetrics_UnknownCounterFallsBackToEvents(t *testing.T) {
	pm := newTestMetrics()

	pm.RecordCounter("documents_skipped_total", 3, nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(pm.eventCounter.WithLabelValues("documents_skipped_total")))
}

func TestPrometheusMetrics_MissingLabelsDefaultToUnknown(t *testing.T) {
	pm := newTestMetrics()

	tests := []struct {
		name   string
		labels map[string]string
	}{
		{"nil labels", nil},
		{"empty labels", map[string]string{}},
		{"empty values", map[string]string{"provider": "", "model": "", "status": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm.RecordCounter("llm_requests_total", 1, tt.labels)
		})
	}

	got := testutil.ToFloat64(pm.llmRequests.WithLabelValues("unknown", "unknown", "unknown"))
	assert.Equal(t, 3.0, got)
}

func TestPrometheusMetrics_Gauge(t *testing.T) {
	pm := newTestMetrics()

	pm.RecordGauge("tasks_in_flight", 7, nil)
	pm.RecordGauge("tasks_in_flight", 4, nil)

	assert.Equal(t, 4.0, testutil.ToFloat64(pm.stateGauges.WithLabelValues("tasks_in_flight")))
}

func TestPrometheusMetrics_Histograms(t *testing.T) {
	pm := newTestMetrics()

	assert.NotPanics(t, func() {
		pm.RecordHistogram("llm_latency_seconds", 0.8, map[string]string{
			"provider": "anthropic", "model": "claude-3-5-sonnet-20241022", "status": "timeout",
		})
		pm.RecordHistogram("extraction_task_seconds", 3.2, map[string]string{
			"model": "sonnet", "outcome": "success",
		})
		pm.RecordHistogram("unlabeled_histogram", 0.1, nil)
	})
}

func TestPrometheusMetrics_RecordLatency(t *testing.T) {
	pm := newTestMetrics()

	assert.NotPanics(t, func() {
		pm.RecordLatency("run_batch", 120*time.Millisecond, nil)
		pm.RecordLatency("run_batch", 0, map[string]string{"extra": "ignored"})
	})
}

func TestPrometheusMetrics_NegativeCounterPanics(t *testing.T) {
	pm := newTestMetrics()

	// Prometheus counters are monotonic and reject negative increments.
	assert.Panics(t, func() {
		pm.RecordCounter("llm_requests_total", -1, map[string]string{
			"provider": "openai", "model": "gpt-4o-mini", "status": "success",
		})
	})
}
