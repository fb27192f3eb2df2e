package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/structured-trts/sentenca/internal/domain"
	"github.com/structured-trts/sentenca/internal/ports"
)

// Model binds a registry key to the client that serves it. Options are the
// per-call request options for this model (temperature, max_tokens,
// json_mode, system) and are cloned before every call.
type Model struct {
	// Name is the registry key recorded on results and summaries.
	Name string

	// Provider is the backend serving the model, e.g. "openai".
	Provider string

	// Client performs the completion calls. The client carries its own
	// middleware chain for timeouts, retries, and rate limiting.
	Client ports.LLMClient

	// Options are the request options sent with every call.
	Options map[string]any
}

// Orchestrator drives one task through render, call, parse, and validate,
// always terminating in a populated result. All failure modes are folded
// into the result's error kind; Run never returns an error.
// An Orchestrator is safe for concurrent use.
type Orchestrator struct {
	models    map[string]Model
	order     []string
	renderer  *PromptRenderer
	validator *domain.Validator
	metrics   ports.MetricsCollector
}

// NewOrchestrator wires the configured models to the prompt renderer and
// schema validator. Duplicate model names and nil clients are configuration
// errors and fail immediately. A nil metrics collector disables metrics.
func NewOrchestrator(models []Model, renderer *PromptRenderer, validator *domain.Validator, metrics ports.MetricsCollector) (*Orchestrator, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("at least one model is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("prompt renderer cannot be nil")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator cannot be nil")
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}

	o := &Orchestrator{
		models:    make(map[string]Model, len(models)),
		renderer:  renderer,
		validator: validator,
		metrics:   metrics,
	}
	for _, m := range models {
		if m.Name == "" {
			return nil, fmt.Errorf("model name cannot be empty")
		}
		if m.Client == nil {
			return nil, fmt.Errorf("model %s has no client", m.Name)
		}
		if _, exists := o.models[m.Name]; exists {
			return nil, fmt.Errorf("duplicate model name: %s", m.Name)
		}
		o.models[m.Name] = m
		o.order = append(o.order, m.Name)
	}
	return o, nil
}

// Model returns the configured model for a registry key.
func (o *Orchestrator) Model(name string) (Model, bool) {
	m, ok := o.models[name]
	return m, ok
}

// ModelNames returns the configured model names in registration order.
func (o *Orchestrator) ModelNames() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// PromptSource returns the raw prompt template text, recorded on tasks.
func (o *Orchestrator) PromptSource() string { return o.renderer.Source() }

// Run executes one task to completion. The elapsed time covers the full
// call, parse, and validate sequence, including provider retries, and is
// recorded on every branch.
func (o *Orchestrator) Run(ctx context.Context, task domain.ExtractionTask) domain.ExtractionResult {
	start := time.Now()

	res := domain.ExtractionResult{
		TaskID:     task.ID(),
		DocumentID: task.DocumentID,
		ModelName:  task.ModelName,
	}

	model, ok := o.models[task.ModelName]
	if !ok {
		// The registry rejects unknown models before a batch starts, so
		// this only fires when tasks are constructed by hand.
		res.ErrorKind = domain.ProviderErrorKind(ports.ErrorKindUnknown.String())
		res.ErrorMessage = fmt.Sprintf("model %q is not configured", task.ModelName)
		return o.finish(res, start)
	}
	res.Provider = model.Provider

	prompt, err := o.renderer.Render(task)
	if err != nil {
		res.ErrorKind = domain.ProviderErrorKind(ports.ErrorKindUnknown.String())
		res.ErrorMessage = err.Error()
		return o.finish(res, start)
	}

	raw, tokensIn, tokensOut, err := model.Client.CompleteWithUsage(ctx, prompt, maps.Clone(model.Options))
	if err != nil {
		res.ErrorKind = domain.ProviderErrorKind(ports.ClassifyError(err).String())
		res.ErrorMessage = err.Error()
		return o.finish(res, start)
	}

	candidate, found := domain.ExtractJSONObject(raw)
	if !found || !json.Valid([]byte(candidate)) {
		res.ErrorKind = domain.ErrorKindParse
		res.ErrorMessage = "model response does not contain a valid JSON object"
		return o.finish(res, start)
	}

	record, err := o.validator.Validate([]byte(candidate))
	if err != nil {
		// SchemaError messages carry the failing field path.
		res.ErrorKind = domain.ErrorKindSchema
		res.ErrorMessage = err.Error()
		return o.finish(res, start)
	}

	res.Success = true
	res.ExtractedData = record
	res.TokensIn = tokensIn
	res.TokensOut = tokensOut
	return o.finish(res, start)
}

// finish stamps the elapsed time and emits per-task metrics.
func (o *Orchestrator) finish(res domain.ExtractionResult, start time.Time) domain.ExtractionResult {
	res.ExtractionTimeSeconds = time.Since(start).Seconds()

	outcome := res.ErrorKind
	if res.Success {
		outcome = "success"
	}
	labels := map[string]string{"model": res.ModelName, "outcome": outcome}
	o.metrics.RecordCounter("extraction_tasks_total", 1, labels)
	o.metrics.RecordHistogram("extraction_task_seconds", res.ExtractionTimeSeconds, labels)
	return res
}

// nopMetrics discards all measurements.
type nopMetrics struct{}

func (nopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (nopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (nopMetrics) RecordGauge(string, float64, map[string]string)         {}
func (nopMetrics) RecordHistogram(string, float64, map[string]string)     {}
