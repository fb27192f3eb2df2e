package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extractionPrompt = "Extraia os pedidos da sentença: reclamação trabalhista 0001234-55.2023.5.02.0041"

// newExtractionMock returns a mock core configured like a provider answering
// an extraction request.
func newExtractionMock() *MockCoreLLM {
	mock := NewMockCoreLLM()
	mock.Response = `{"decision_type": "merito", "claims": []}`
	mock.TokensIn = 512
	mock.TokensOut = 64
	mock.Model = "gpt-4o-mini"
	return mock
}

func TestTimeoutMiddleware_CompletesWithinDeadline(t *testing.T) {
	// Given a provider that answers well inside the per-call deadline
	mock := newExtractionMock()
	mock.ResponseDelay = 10 * time.Millisecond
	wrapped := TimeoutMiddleware(100 * time.Millisecond)(mock)

	// When sending an extraction request
	response, tokensIn, tokensOut, err := wrapped.DoRequest(context.Background(), extractionPrompt, nil)

	// Then the extraction payload and token usage come back untouched
	require.NoError(t, err, "call should complete within the deadline")
	assert.Equal(t, `{"decision_type": "merito", "claims": []}`, response, "response should match")
	assert.Equal(t, 512, tokensIn, "input tokens should match")
	assert.Equal(t, 64, tokensOut, "output tokens should match")
	assert.Equal(t, 1, mock.GetCallCount(), "should call the provider once")
}

func TestTimeoutMiddleware_StuckCallHitsDeadline(t *testing.T) {
	// Given a provider that hangs well past the deadline
	mock := newExtractionMock()
	mock.ResponseDelay = 200 * time.Millisecond
	deadline := 50 * time.Millisecond
	wrapped := TimeoutMiddleware(deadline)(mock)

	// When the call stalls
	start := time.Now()
	_, _, _, err := wrapped.DoRequest(context.Background(), extractionPrompt, nil)
	elapsed := time.Since(start)

	// Then the deadline fires instead of stalling the batch
	require.Error(t, err, "stuck call should hit the deadline")
	assert.True(t, errors.Is(err, context.DeadlineExceeded),
		"error should be deadline exceeded: %v", err)
	assert.Equal(t, 1, mock.GetCallCount(), "should call the provider once")

	assert.Greater(t, elapsed, deadline, "should wait out the configured deadline")
	assert.Less(t, elapsed, deadline+50*time.Millisecond, "should not wait much past the deadline")
}

func TestTimeoutMiddleware_ShorterCallerDeadlineWins(t *testing.T) {
	// Given a batch context with a tighter deadline than the middleware's
	mock := newExtractionMock()
	mock.ResponseDelay = 200 * time.Millisecond
	middlewareDeadline := 300 * time.Millisecond
	wrapped := TimeoutMiddleware(middlewareDeadline)(mock)

	callerDeadline := 50 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), callerDeadline)
	defer cancel()

	// When the call outlives the caller's deadline
	start := time.Now()
	_, _, _, err := wrapped.DoRequest(ctx, extractionPrompt, nil)
	elapsed := time.Since(start)

	// Then the caller's deadline takes effect first
	require.Error(t, err, "call should hit the caller's deadline")
	assert.True(t, errors.Is(err, context.DeadlineExceeded),
		"error should be deadline exceeded: %v", err)

	assert.Greater(t, elapsed, callerDeadline, "should wait out the caller's deadline")
	assert.Less(t, elapsed, middlewareDeadline, "should fail before the middleware deadline")
}

func TestTimeoutMiddleware_ProviderErrorSkipsDeadline(t *testing.T) {
	// Given a provider that rejects the call outright
	mock := newExtractionMock()
	mock.Error = errors.New("invalid api key")
	wrapped := TimeoutMiddleware(100 * time.Millisecond)(mock)

	// When the call fails immediately
	start := time.Now()
	_, _, _, err := wrapped.DoRequest(context.Background(), extractionPrompt, nil)
	elapsed := time.Since(start)

	// Then the failure surfaces without waiting for the deadline
	require.Error(t, err, "call should fail")
	assert.Equal(t, "invalid api key", err.Error(), "should return the provider error")
	assert.Equal(t, 1, mock.GetCallCount(), "should call the provider once")

	assert.Less(t, elapsed, 50*time.Millisecond, "should fail immediately")
}

func TestTimeoutMiddleware_PassesThroughModelMethods(t *testing.T) {
	mock := newExtractionMock()
	wrapped := TimeoutMiddleware(100 * time.Millisecond)(mock)

	assert.Equal(t, "gpt-4o-mini", wrapped.GetModel(), "should pass through GetModel")

	wrapped.SetModel("gpt-4.1-mini")
	assert.Equal(t, "gpt-4.1-mini", wrapped.GetModel(), "should pass through SetModel")
	assert.Equal(t, "gpt-4.1-mini", mock.GetModel(), "should update the wrapped core")
}

func TestTimeoutMiddleware_PreservesPromptAndOptions(t *testing.T) {
	// Given a call carrying per-model options and a request-scoped value
	mock := newExtractionMock()
	wrapped := TimeoutMiddleware(100 * time.Millisecond)(mock)

	ctx := context.WithValue(context.Background(), testContextKey, "run-7f3a")
	opts := map[string]any{"temperature": 0.0, "json_mode": true}

	// When the call passes through the deadline wrapper
	_, _, _, err := wrapped.DoRequest(ctx, extractionPrompt, opts)

	// Then prompt, options, and context values all reach the provider
	require.NoError(t, err, "call should succeed")
	assert.Equal(t, extractionPrompt, mock.LastPrompt, "prompt should be preserved")
	assert.Equal(t, opts, mock.LastOpts, "options should be preserved")
	assert.Equal(t, "run-7f3a", mock.LastContext.Value(testContextKey),
		"context value should be preserved")
}

func TestTimeoutMiddleware_CallerCancellation(t *testing.T) {
	// Given a batch being cancelled while a call is in flight
	mock := newExtractionMock()
	mock.ResponseDelay = 200 * time.Millisecond
	wrapped := TimeoutMiddleware(300 * time.Millisecond)(mock)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// When the cancellation lands mid-call
	start := time.Now()
	_, _, _, err := wrapped.DoRequest(ctx, extractionPrompt, nil)
	elapsed := time.Since(start)

	// Then the call unwinds promptly with a cancellation error
	require.Error(t, err, "call should be cancelled")
	assert.True(t, errors.Is(err, context.Canceled),
		"error should be context cancelled: %v", err)

	assert.Greater(t, elapsed, 40*time.Millisecond, "should wait for the cancellation")
	assert.Less(t, elapsed, 100*time.Millisecond, "should unwind quickly after cancellation")
}

func TestTimeoutMiddleware_ZeroDeadlineFailsImmediately(t *testing.T) {
	// Given a zero deadline, which no call can satisfy
	mock := newExtractionMock()
	mock.ResponseDelay = 10 * time.Millisecond
	wrapped := TimeoutMiddleware(0)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), extractionPrompt, nil)

	require.Error(t, err, "call should fail immediately")
	assert.True(t, errors.Is(err, context.DeadlineExceeded),
		"error should be deadline exceeded: %v", err)
}

func TestTimeoutMiddleware_GenerousDeadlineDoesNotDelay(t *testing.T) {
	// Given a deadline far beyond the provider's latency
	mock := newExtractionMock()
	mock.ResponseDelay = 10 * time.Millisecond
	wrapped := TimeoutMiddleware(10 * time.Second)(mock)

	start := time.Now()
	response, tokensIn, tokensOut, err := wrapped.DoRequest(context.Background(), extractionPrompt, nil)
	elapsed := time.Since(start)

	require.NoError(t, err, "call should succeed")
	assert.Equal(t, `{"decision_type": "merito", "claims": []}`, response, "response should match")
	assert.Equal(t, 512, tokensIn, "input tokens should match")
	assert.Equal(t, 64, tokensOut, "output tokens should match")

	assert.Less(t, elapsed, 100*time.Millisecond, "should return as soon as the provider answers")
}

func TestTimeoutMiddleware_ConcurrentCallsGetIndependentDeadlines(t *testing.T) {
	// Given several documents fanned out against the same wrapped client
	mock := newExtractionMock()
	mock.ResponseDelay = 10 * time.Millisecond
	wrapped := TimeoutMiddleware(200 * time.Millisecond)(mock)

	const numCalls = 3
	results := make(chan error, numCalls)

	for range numCalls {
		go func() {
			_, _, _, err := wrapped.DoRequest(context.Background(), extractionPrompt, nil)
			results <- err
		}()
	}

	// Then each call completes under its own deadline
	for i := range numCalls {
		select {
		case err := <-results:
			assert.NoError(t, err, "call %d should succeed", i)
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("call %d did not complete", i)
		}
	}

	assert.Equal(t, numCalls, mock.GetCallCount(), "should forward every call")
}
