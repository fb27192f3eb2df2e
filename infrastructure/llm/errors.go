package llm

import (
	"context"
	"errors"

	"github.com/structured-trts/sentenca/internal/ports"
)

// Common errors returned by the LLM client and providers.
var (
	// ErrEmptyAPIKey indicates that an API key was required but not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
	// ErrEmptyResponse indicates that the provider's API returned an empty or nil response body.
	ErrEmptyResponse = errors.New("empty response from API")
	// ErrNoResponseChoice indicates that the provider's response contained no valid choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
	// ErrInvalidModel indicates that the requested model is not valid or accessible.
	ErrInvalidModel = errors.New("invalid or inaccessible model")
)

// ErrorClassifier standardizes provider-specific errors into
// ports.ProviderError instances. It uses context such as HTTP status codes
// to determine the error kind each provider adapter reports.
type ErrorClassifier struct {
	// Provider is the name of the LLM provider for which this classifier works.
	Provider string
}

// ClassifyHTTPError builds a ProviderError from an HTTP status code.
// 401/403 map to auth, 429 to rate_limited; everything else, including
// server-side 5xx, is reported as unknown.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, model string, err error) *ports.ProviderError {
	var kind ports.ErrorKind
	switch statusCode {
	case 401, 403:
		kind = ports.ErrorKindAuth
	case 429:
		kind = ports.ErrorKindRateLimited
	default:
		kind = ports.ErrorKindUnknown
	}

	pe := ports.NewProviderError(kind, ec.Provider, model, err)
	pe.StatusCode = statusCode
	return pe
}

// ClassifyContextError builds a ProviderError from a context-related error.
// Deadline expiry counts as a timeout; plain cancellation is not a provider
// failure category of its own and is reported as unknown so callers can
// still inspect the wrapped context.Canceled.
func (ec *ErrorClassifier) ClassifyContextError(model string, err error) *ports.ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return ports.NewProviderError(ports.ErrorKindTimeout, ec.Provider, model, err)
	}
	return ports.NewProviderError(ports.ErrorKindUnknown, ec.Provider, model, err)
}

// ClassifyMalformed builds a ProviderError for responses that arrived but
// carried no usable content (empty body, no choices, missing text parts).
func (ec *ErrorClassifier) ClassifyMalformed(model string, err error) *ports.ProviderError {
	return ports.NewProviderError(ports.ErrorKindMalformedResponse, ec.Provider, model, err)
}

// ClassifyError is the catch-all path for SDK errors that carry no HTTP
// status. Context errors are detected first; anything else is unknown.
func (ec *ErrorClassifier) ClassifyError(model string, err error) *ports.ProviderError {
	var pe *ports.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ec.ClassifyContextError(model, err)
	}
	return ports.NewProviderError(ports.ErrorKindUnknown, ec.Provider, model, err)
}
