package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/structured-trts/sentenca/internal/domain"
)

// DefaultConcurrency bounds task fan-out when the configuration does not
// set a limit. Kept small so per-provider rate limits are respected even
// with several models in a batch.
const DefaultConcurrency = 4

// RunnerConfig holds the batch execution limits.
type RunnerConfig struct {
	// Concurrency is the maximum number of tasks in flight at once.
	// Zero selects DefaultConcurrency.
	Concurrency int

	// MaxDocumentTokens skips documents whose estimated token count
	// exceeds it, before any task is enumerated. Zero disables the
	// filter.
	MaxDocumentTokens int
}

// Runner fans the orchestrator out across the document and model
// cross-product. Task failures are isolated: one task's failure never
// affects another task's execution or result.
type Runner struct {
	orch   *Orchestrator
	cfg    RunnerConfig
	logger *slog.Logger
}

// NewRunner creates a batch runner over the orchestrator's configured
// models.
func NewRunner(orch *Orchestrator, cfg RunnerConfig, logger *slog.Logger) (*Runner, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator cannot be nil")
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency cannot be negative, got %d", cfg.Concurrency)
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxDocumentTokens < 0 {
		return nil, fmt.Errorf("max document tokens cannot be negative, got %d", cfg.MaxDocumentTokens)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{orch: orch, cfg: cfg, logger: logger}, nil
}

// RunBatch executes every (document, model) pair and returns the collected
// results in completion order. A nil model list selects every configured
// model. Unknown model names fail before any task starts.
//
// Cancelling ctx stops new tasks from being issued; tasks already in flight
// resolve to recorded results. When the batch is cut short, the results
// gathered so far are returned together with the context error.
func (r *Runner) RunBatch(ctx context.Context, docs []domain.Document, modelNames []string) ([]domain.ExtractionResult, error) {
	if len(modelNames) == 0 {
		modelNames = r.orch.ModelNames()
	}
	for _, name := range modelNames {
		if _, ok := r.orch.Model(name); !ok {
			return nil, fmt.Errorf("model %q is not configured", name)
		}
	}

	kept := r.filterOversized(docs, modelNames[0])

	tasks := make([]domain.ExtractionTask, 0, len(kept)*len(modelNames))
	for _, doc := range kept {
		for _, name := range modelNames {
			tasks = append(tasks, domain.ExtractionTask{
				DocumentID:     doc.ID,
				DocumentText:   doc.Text,
				ModelName:      name,
				PromptTemplate: r.orch.PromptSource(),
				Metadata:       doc.Metadata,
			})
		}
	}

	r.logger.Info("starting extraction batch",
		"documents", len(kept),
		"models", len(modelNames),
		"tasks", len(tasks),
		"concurrency", r.cfg.Concurrency)

	recorder := NewRecorder()
	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Concurrency)

	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		task := task
		g.Go(func() error {
			recorder.Record(r.orch.Run(ctx, task))
			return nil
		})
	}

	// Workers never return errors; Wait only drains in-flight tasks.
	_ = g.Wait()

	results := recorder.Results()
	if err := ctx.Err(); err != nil {
		r.logger.Warn("extraction batch cancelled",
			"recorded", len(results),
			"tasks", len(tasks))
		return results, fmt.Errorf("batch cancelled after %d of %d tasks: %w", len(results), len(tasks), err)
	}

	r.logger.Info("extraction batch complete", "results", len(results))
	return results, nil
}

// filterOversized drops documents over the token budget, using the token
// estimator of the named model's client. Estimator failures keep the
// document; the provider will reject it if it truly is too large.
func (r *Runner) filterOversized(docs []domain.Document, estimatorModel string) []domain.Document {
	if r.cfg.MaxDocumentTokens <= 0 {
		return docs
	}

	model, _ := r.orch.Model(estimatorModel)
	kept := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		tokens, err := model.Client.EstimateTokens(doc.Text)
		if err != nil {
			r.logger.Warn("token estimation failed, keeping document",
				"document_id", doc.ID, "error", err)
			kept = append(kept, doc)
			continue
		}
		if tokens > r.cfg.MaxDocumentTokens {
			r.logger.Warn("skipping document over token budget",
				"document_id", doc.ID,
				"estimated_tokens", tokens,
				"max_document_tokens", r.cfg.MaxDocumentTokens)
			continue
		}
		kept = append(kept, doc)
	}
	return kept
}
