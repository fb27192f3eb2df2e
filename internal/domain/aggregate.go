package domain

import (
	"sort"
)

// Summarize groups extraction results by model and computes the per-model
// summary statistics: task count, success rate (mean of the boolean success
// flag), and average extraction time over all tasks, failures included.
// The computation is deterministic and order-independent; summaries are
// returned sorted by model name.
func Summarize(results []ExtractionResult) []ModelSummary {
	type acc struct {
		count     int
		successes int
		totalTime float64
	}

	byModel := make(map[string]*acc)
	for _, r := range results {
		a, ok := byModel[r.ModelName]
		if !ok {
			a = &acc{}
			byModel[r.ModelName] = a
		}
		a.count++
		if r.Success {
			a.successes++
		}
		a.totalTime += r.ExtractionTimeSeconds
	}

	summaries := make([]ModelSummary, 0, len(byModel))
	for model, a := range byModel {
		summaries = append(summaries, ModelSummary{
			ModelName:                model,
			TaskCount:                a.count,
			SuccessRate:              float64(a.successes) / float64(a.count),
			AvgExtractionTimeSeconds: a.totalTime / float64(a.count),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ModelName < summaries[j].ModelName
	})
	return summaries
}
