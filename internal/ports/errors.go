package ports

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a provider failure into one of the fixed categories
// recorded on extraction results. Every error surfaced by an LLMClient is
// tagged with exactly one kind.
type ErrorKind string

const (
	// ErrorKindTimeout indicates the call exceeded its deadline or was
	// cancelled by a parent context deadline.
	ErrorKindTimeout ErrorKind = "timeout"

	// ErrorKindRateLimited indicates the backend rejected the call with a
	// rate-limit response (HTTP 429 or equivalent).
	ErrorKindRateLimited ErrorKind = "rate_limited"

	// ErrorKindAuth indicates the backend rejected the credentials
	// (HTTP 401/403 or equivalent).
	ErrorKindAuth ErrorKind = "auth"

	// ErrorKindMalformedResponse indicates the backend answered but the
	// payload was unusable (empty body, truncated stream, no text content).
	ErrorKindMalformedResponse ErrorKind = "malformed_response"

	// ErrorKindUnknown covers everything else: network failures, 5xx
	// responses, unexpected SDK errors.
	ErrorKindUnknown ErrorKind = "unknown"
)

// String returns the kind as it appears in recorded results.
func (k ErrorKind) String() string { return string(k) }

// ProviderError represents a classified failure from an LLM backend.
// It carries the provider and model for logging, and the kind drives
// both retry decisions and the error_kind recorded on results.
type ProviderError struct {
	// Kind is the failure category.
	Kind ErrorKind

	// Provider is the backend that produced the error (openai, anthropic,
	// google, groq).
	Provider string

	// Model is the identifier of the model that was being called.
	Model string

	// StatusCode is the HTTP status from the backend, when one exists.
	StatusCode int

	// Err is the underlying error from the SDK or transport.
	Err error

	// RetryAfter indicates how long to wait before retrying, if the
	// backend supplied one.
	RetryAfter *time.Duration
}

// Error implements the error interface for ProviderError.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider error: kind=%s, provider=%s, model=%s", e.Kind, e.Provider, e.Model)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status=%d", e.StatusCode)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(", err=%v", e.Err)
	}
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether the failure is transient. Only timeouts and
// rate limits qualify; auth failures and malformed responses repeat
// deterministically and unknown errors are not safe to assume transient.
func (e *ProviderError) IsRetryable() bool {
	return e.Kind == ErrorKindTimeout || e.Kind == ErrorKindRateLimited
}

// NewProviderError creates a ProviderError with the given classification.
func NewProviderError(kind ErrorKind, provider, model string, err error) *ProviderError {
	return &ProviderError{
		Kind:     kind,
		Provider: provider,
		Model:    model,
		Err:      err,
	}
}

// ClassifyError extracts the ErrorKind from an error chain. Errors that do
// not carry a ProviderError are reported as unknown.
func ClassifyError(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorKindUnknown
}

// IsRetryableError reports whether any ProviderError in the chain is
// retryable. Unclassified errors are not retried.
func IsRetryableError(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return false
}
