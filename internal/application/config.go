// Package application holds the run configuration for the benchmark
// harness: the model registry, per-provider limits, retry policy, prompt
// template location, and the claim vocabulary. Configuration errors are
// surfaced when the file is loaded, before any task starts.
package application

import (
	"time"
)

// Defaults applied to omitted configuration fields.
const (
	// DefaultConcurrency bounds tasks in flight when run.concurrency is
	// omitted. Small on purpose so provider rate limits hold with several
	// models in a batch.
	DefaultConcurrency = 4

	// DefaultTimeoutSeconds is the per-call deadline for provider requests.
	DefaultTimeoutSeconds = 120

	// DefaultRetryAttempts is the number of retries after the initial
	// attempt for transient provider failures.
	DefaultRetryAttempts = 2

	// DefaultInitialWaitMs and DefaultMaxWaitMs bound the exponential
	// backoff between retry attempts.
	DefaultInitialWaitMs = 500
	DefaultMaxWaitMs     = 8000

	// DefaultRequestsPerSecond and DefaultBurst shape the per-provider
	// rate limiter when the provider block omits them.
	DefaultRequestsPerSecond = 1.0
	DefaultBurst             = 2
)

// Config is the complete specification for one benchmark run.
type Config struct {
	// Run holds the batch execution limits.
	Run RunConfig `yaml:"run"`

	// Retry configures the bounded retry policy for transient provider
	// failures. Content failures (parse, schema) are never retried.
	Retry RetryConfig `yaml:"retry"`

	// Providers configures each backend in use, keyed by provider name
	// (openai, anthropic, google, groq).
	Providers map[string]ProviderConfig `yaml:"providers" validate:"required,min=1"`

	// Models lists the registry of models to benchmark.
	Models []ModelConfig `yaml:"models" validate:"required,min=1,dive"`

	// Prompt points at the prompt template. An empty path selects the
	// built-in template.
	Prompt PromptConfig `yaml:"prompt"`

	// ClaimVocabulary is the fixed set of allowed claim types, each in
	// "(code) description" form.
	ClaimVocabulary []string `yaml:"claim_vocabulary" validate:"required,min=1,dive,min=1"`
}

// RunConfig holds the batch execution limits.
type RunConfig struct {
	// Concurrency is the maximum number of tasks in flight at once.
	Concurrency int `yaml:"concurrency" validate:"omitempty,min=1,max=64"`

	// TimeoutSeconds is the per-call deadline for provider requests.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1,max=3600"`

	// MaxDocumentTokens skips documents whose estimated token count
	// exceeds it. Zero disables the filter.
	MaxDocumentTokens int `yaml:"max_document_tokens" validate:"omitempty,min=1"`
}

// Timeout returns the per-call deadline as a duration.
func (r RunConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// RetryConfig specifies the bounded retry policy for transient failures.
type RetryConfig struct {
	// MaxAttempts is the number of retries after the initial attempt.
	// Zero disables retries entirely.
	MaxAttempts int `yaml:"max_attempts" validate:"min=0,max=10"`

	// InitialWait is the base backoff delay in milliseconds.
	InitialWait int `yaml:"initial_wait_ms" validate:"omitempty,min=0,max=60000"`

	// MaxWait caps the backoff delay in milliseconds.
	MaxWait int `yaml:"max_wait_ms" validate:"omitempty,min=0,max=300000"`
}

// InitialDelay returns the base backoff delay as a duration.
func (r RetryConfig) InitialDelay() time.Duration {
	return time.Duration(r.InitialWait) * time.Millisecond
}

// MaxDelay returns the backoff cap as a duration.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxWait) * time.Millisecond
}

// ProviderConfig shapes one backend's credentials and rate limits.
type ProviderConfig struct {
	// EnvVar overrides the environment variable holding the API key.
	// Empty selects the provider's conventional variable, e.g.
	// OPENAI_API_KEY.
	EnvVar string `yaml:"env_var"`

	// RequestsPerSecond and Burst shape the provider's rate limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"omitempty,gt=0"`
	Burst             int     `yaml:"burst" validate:"omitempty,min=1"`

	// BaseURL overrides the provider's API endpoint.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// ModelConfig is one entry in the model registry.
type ModelConfig struct {
	// Name is the registry key recorded on results, e.g. "gpt-4o-mini".
	Name string `yaml:"name" validate:"required,min=1,max=100"`

	// Provider selects the backend serving this model.
	Provider string `yaml:"provider" validate:"required,oneof=openai anthropic google groq"`

	// ModelID is the provider's own identifier for the model.
	ModelID string `yaml:"model_id" validate:"required,min=1"`

	// Temperature, when set, is passed on every call. Nil leaves the
	// provider default in place.
	Temperature *float64 `yaml:"temperature" validate:"omitempty,min=0,max=2"`

	// MaxTokens caps the completion length. Zero selects the provider
	// default.
	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=1,max=128000"`

	// JSONMode requests a JSON-constrained response from backends that
	// support it.
	JSONMode bool `yaml:"json_mode"`
}

// PromptConfig points at the prompt template file.
type PromptConfig struct {
	// TemplatePath is the path to a text/template file. Empty selects
	// the built-in template.
	TemplatePath string `yaml:"template_path"`
}

// applyDefaults fills omitted fields in place.
func (c *Config) applyDefaults() {
	if c.Run.Concurrency == 0 {
		c.Run.Concurrency = DefaultConcurrency
	}
	if c.Run.TimeoutSeconds == 0 {
		c.Run.TimeoutSeconds = DefaultTimeoutSeconds
	}
	// Retry.MaxAttempts keeps its zero value: zero means retries are
	// disabled, which must stay expressible.
	if c.Retry.InitialWait == 0 {
		c.Retry.InitialWait = DefaultInitialWaitMs
	}
	if c.Retry.MaxWait == 0 {
		c.Retry.MaxWait = DefaultMaxWaitMs
	}
	for name, p := range c.Providers {
		if p.RequestsPerSecond == 0 {
			p.RequestsPerSecond = DefaultRequestsPerSecond
		}
		if p.Burst == 0 {
			p.Burst = DefaultBurst
		}
		c.Providers[name] = p
	}
}
