package llm

import (
	"context"
	"time"
)

// timeoutLLM caps each provider call at a fixed deadline. A sentence that
// wedges a backend must not stall the whole batch; the deadline turns a
// stuck call into a context error the classifier records as a timeout.
type timeoutLLM struct {
	next    CoreLLM
	timeout time.Duration
}

// TimeoutMiddleware enforces the per-call deadline from the run
// configuration. Each attempt gets a fresh deadline, so a retried call is
// not charged for the time its predecessor spent hanging.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &timeoutLLM{
			next:    next,
			timeout: timeout,
		}
	}
}

// DoRequest forwards the call under a child context carrying the deadline.
// A shorter deadline already present on ctx wins.
func (t *timeoutLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, prompt, opts)
}

// GetModel returns the model name from the wrapped implementation.
func (t *timeoutLLM) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *timeoutLLM) SetModel(m string) { t.next.SetModel(m) }
