package domain

import (
	"time"
)

// Document is one input judgment: an identifier, the sentence text, and the
// free-form metadata block that is embedded into the prompt. The harness
// never interprets the metadata; it only renders it.
type Document struct {
	// ID uniquely identifies the source case, e.g. the processo number.
	ID string `json:"id"`

	// Text is the full sentence text to extract from.
	Text string `json:"text"`

	// Metadata is prepended to the prompt as a JSON block. Opaque to the
	// harness beyond serialization.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ExtractionTask is one (document, model) unit of work. Tasks are immutable
// once created and each task produces exactly one ExtractionResult.
type ExtractionTask struct {
	// DocumentID identifies the source document.
	DocumentID string

	// DocumentText is the sentence text sent to the model.
	DocumentText string

	// ModelName is the registry key of the model to call, e.g. "gpt-4.1".
	ModelName string

	// PromptTemplate is the template text rendered into the prompt for
	// this task. All tasks in a batch share the same template.
	PromptTemplate string

	// Metadata is the document's metadata block for prompt composition.
	Metadata map[string]any
}

// ID returns the task identity used in result rows.
func (t ExtractionTask) ID() string { return t.DocumentID + "/" + t.ModelName }

// ProviderResponse is the raw outcome of a single provider call. It is owned
// transiently by the orchestrator and consumed immediately by the validator.
type ProviderResponse struct {
	// RawText is the unparsed model output.
	RawText string

	// Latency is the wall-clock duration of the provider call.
	Latency time.Duration

	// TokensIn and TokensOut are the token counts reported by the provider,
	// or estimates when the provider does not report usage.
	TokensIn  int
	TokensOut int
}

// Error kinds recorded on failed extraction results. Provider failures carry
// a "provider:" prefix followed by the classified provider error kind.
const (
	// ErrorKindParse indicates the model response was not valid JSON.
	ErrorKindParse = "parse_error"

	// ErrorKindSchema indicates the parsed JSON failed schema validation.
	ErrorKindSchema = "schema_error"

	// errorKindProviderPrefix prefixes classified provider failures,
	// e.g. "provider:timeout" or "provider:rate_limited".
	errorKindProviderPrefix = "provider:"
)

// ProviderErrorKind builds the result error kind for a classified provider
// failure, e.g. ProviderErrorKind("timeout") == "provider:timeout".
func ProviderErrorKind(kind string) string {
	return errorKindProviderPrefix + kind
}

// ExtractionResult is the single, append-only record produced for a task.
// Success is true if and only if ExtractedData is non-nil and passed schema
// validation; ErrorKind is non-empty if and only if Success is false.
type ExtractionResult struct {
	// TaskID is DocumentID + "/" + ModelName.
	TaskID string `json:"task_id"`

	// DocumentID identifies the source document.
	DocumentID string `json:"document_id"`

	// ModelName is the registry key of the model that ran.
	ModelName string `json:"model_name"`

	// Provider is the backend that served the call, e.g. "openai".
	Provider string `json:"provider,omitempty"`

	// Success reports whether a schema-valid record was extracted.
	Success bool `json:"success"`

	// ExtractedData is the validated record, nil on failure.
	ExtractedData *LaborSentenceExtraction `json:"extracted_data"`

	// ErrorKind is the machine-readable failure class, empty on success.
	ErrorKind string `json:"error_kind,omitempty"`

	// ErrorMessage is the human-readable failure detail, empty on success.
	ErrorMessage string `json:"error_message,omitempty"`

	// ExtractionTimeSeconds is the elapsed wall-clock time for the whole
	// attempt, including failed provider calls and retries.
	ExtractionTimeSeconds float64 `json:"extraction_time_seconds"`

	// TokensIn and TokensOut record token usage when the call succeeded.
	TokensIn  int `json:"input_tokens,omitempty"`
	TokensOut int `json:"output_tokens,omitempty"`
}

// ModelSummary is the per-model aggregate computed from the full result set.
// It is always recomputed from scratch, never mutated incrementally.
type ModelSummary struct {
	ModelName string `json:"model_name"`

	// TaskCount is the number of tasks that ran against this model.
	TaskCount int `json:"n"`

	// SuccessRate is the arithmetic mean of the boolean success flags,
	// in [0, 1].
	SuccessRate float64 `json:"success_rate"`

	// AvgExtractionTimeSeconds is the mean extraction time over all of the
	// model's tasks, successes and failures alike.
	AvgExtractionTimeSeconds float64 `json:"avg_extraction_time_seconds"`
}
