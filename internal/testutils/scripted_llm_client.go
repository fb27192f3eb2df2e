// Package testutils provides instrumented fakes for the extraction harness
// test suites: scripted LLM clients with call tracking and a concurrent-call
// high-water mark for concurrency assertions.
package testutils

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/structured-trts/sentenca/internal/ports"
)

// ScriptedResponse is one step in a ScriptedLLMClient's script: either a
// successful completion with token usage, or an error.
type ScriptedResponse struct {
	// Text is the raw completion returned to the caller.
	Text string

	// TokensIn and TokensOut are the usage figures reported with the text.
	TokensIn  int
	TokensOut int

	// Err, when non-nil, is returned instead of Text. Pre-classified
	// provider errors pass through unchanged so callers can assert on
	// error kinds.
	Err error
}

// ScriptedLLMClient implements ports.LLMClient with a fixed response script.
// Calls consume the script in order; once exhausted, the final entry repeats.
// The client tracks every prompt it receives and the maximum number of calls
// that were in flight simultaneously, which lets tests assert bounded
// concurrency without timing games.
//
// A ScriptedLLMClient is safe for concurrent use.
type ScriptedLLMClient struct {
	mu sync.Mutex

	provider string
	model    string
	script   []ScriptedResponse

	// Delay is applied before each call resolves, simulating provider
	// latency. A call racing a context deadline fails with a classified
	// timeout error, mirroring the real middleware chain.
	Delay time.Duration

	calls       int
	prompts     []string
	options     []map[string]any
	inFlight    int
	maxInFlight int
}

// NewScriptedLLMClient creates a client for the given provider and model.
// With an empty script every call succeeds with a minimal valid extraction.
func NewScriptedLLMClient(provider, model string, script ...ScriptedResponse) *ScriptedLLMClient {
	if len(script) == 0 {
		script = []ScriptedResponse{{
			Text:      `{"decision_type": "merito", "claims": []}`,
			TokensIn:  100,
			TokensOut: 20,
		}}
	}
	return &ScriptedLLMClient{
		provider: provider,
		model:    model,
		script:   script,
	}
}

// Complete implements ports.LLMClient.
func (c *ScriptedLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	text, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return text, err
}

// CompleteWithUsage implements ports.LLMClient. The scripted delay runs
// outside the mutex so concurrent callers overlap the way real provider
// calls do.
func (c *ScriptedLLMClient) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	c.mu.Lock()
	c.calls++
	call := c.calls
	c.prompts = append(c.prompts, prompt)
	c.options = append(c.options, options)
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	delay := c.Delay
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return "", 0, 0, c.classifyContext(err)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, c.classifyContext(ctx.Err())
		}
	}

	resp := c.responseFor(call)
	if resp.Err != nil {
		return "", 0, 0, resp.Err
	}
	return resp.Text, resp.TokensIn, resp.TokensOut, nil
}

// EstimateTokens implements ports.LLMClient with the same word-based ratio
// the production estimator uses, keeping budget-filter tests predictable.
func (c *ScriptedLLMClient) EstimateTokens(text string) (int, error) {
	words := len(strings.Fields(text))
	return int(float64(words) / 0.75), nil
}

// GetModel implements ports.LLMClient.
func (c *ScriptedLLMClient) GetModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Calls returns how many completion calls were made.
func (c *ScriptedLLMClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Prompts returns a copy of every prompt received, in call order.
func (c *ScriptedLLMClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// Options returns a copy of the option maps received, in call order.
func (c *ScriptedLLMClient) Options() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, len(c.options))
	copy(out, c.options)
	return out
}

// MaxInFlight returns the concurrent-call high-water mark.
func (c *ScriptedLLMClient) MaxInFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInFlight
}

// responseFor returns the script entry for the nth call (1-based), repeating
// the last entry once the script is exhausted.
func (c *ScriptedLLMClient) responseFor(call int) ScriptedResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	if call > len(c.script) {
		call = len(c.script)
	}
	return c.script[call-1]
}

// classifyContext maps a context error onto the provider error taxonomy the
// way the timeout middleware does: deadline expiry is a timeout, anything
// else is unknown.
func (c *ScriptedLLMClient) classifyContext(err error) error {
	kind := ports.ErrorKindUnknown
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ports.ErrorKindTimeout
	}
	return ports.NewProviderError(kind, c.provider, c.model, err)
}

// Verify interface compliance at compile time.
var _ ports.LLMClient = (*ScriptedLLMClient)(nil)
