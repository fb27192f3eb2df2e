package extraction

import (
	"sync"

	"github.com/structured-trts/sentenca/internal/domain"
)

// Recorder accumulates the per-task results of a batch. Appends are safe
// under concurrent use; reads return snapshots so callers never observe a
// slice being mutated by in-flight tasks.
type Recorder struct {
	mu      sync.Mutex
	results []domain.ExtractionResult
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one result.
func (r *Recorder) Record(res domain.ExtractionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Len returns the number of recorded results.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Results returns a copy of every recorded result, in append order.
func (r *Recorder) Results() []domain.ExtractionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ExtractionResult, len(r.results))
	copy(out, r.results)
	return out
}

// Summaries recomputes the per-model aggregates from the full result set.
func (r *Recorder) Summaries() []domain.ModelSummary {
	return domain.Summarize(r.Results())
}
