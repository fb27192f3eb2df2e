package extraction

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/structured-trts/sentenca/internal/domain"
)

// WriteResults writes one JSON object per line, the row format consumed by
// downstream analysis.
func WriteResults(w io.Writer, results []domain.ExtractionResult) error {
	enc := json.NewEncoder(w)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to write result for task %s: %w", res.TaskID, err)
		}
	}
	return nil
}

// WriteSummaries writes one JSON object per model summary line.
func WriteSummaries(w io.Writer, summaries []domain.ModelSummary) error {
	enc := json.NewEncoder(w)
	for _, s := range summaries {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to write summary for model %s: %w", s.ModelName, err)
		}
	}
	return nil
}

// ReadDocuments decodes a JSON-lines stream of input documents. Blank lines
// are skipped; a malformed line fails the whole read since a partial corpus
// would silently skew the benchmark.
func ReadDocuments(r io.Reader) ([]domain.Document, error) {
	dec := json.NewDecoder(r)
	var docs []domain.Document
	for {
		var doc domain.Document
		if err := dec.Decode(&doc); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", len(docs)+1, err)
		}
		if doc.ID == "" {
			return nil, fmt.Errorf("document %d has no id", len(docs)+1)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
