package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultFor(model string, success bool, seconds float64) ExtractionResult {
	return ExtractionResult{
		TaskID:                "doc/" + model,
		DocumentID:            "doc",
		ModelName:             model,
		Success:               success,
		ExtractionTimeSeconds: seconds,
	}
}

func TestSummarize_SuccessRateIsMeanOfBooleans(t *testing.T) {
	// 3 successes and 1 failure for one model => success_rate = 0.75.
	results := []ExtractionResult{
		resultFor("gpt-4.1", true, 2.0),
		resultFor("gpt-4.1", true, 4.0),
		resultFor("gpt-4.1", true, 6.0),
		resultFor("gpt-4.1", false, 8.0),
	}

	summaries := Summarize(results)

	require.Len(t, summaries, 1)
	assert.Equal(t, "gpt-4.1", summaries[0].ModelName)
	assert.Equal(t, 4, summaries[0].TaskCount)
	assert.Equal(t, 0.75, summaries[0].SuccessRate)
	assert.Equal(t, 5.0, summaries[0].AvgExtractionTimeSeconds,
		"average covers successes and failures alike")
}

func TestSummarize_GroupsByModel(t *testing.T) {
	results := []ExtractionResult{
		resultFor("gemini-2.5-flash", true, 1.0),
		resultFor("gpt-4.1", false, 3.0),
		resultFor("gemini-2.5-flash", false, 3.0),
		resultFor("gpt-4.1", true, 1.0),
	}

	summaries := Summarize(results)

	require.Len(t, summaries, 2)
	assert.Equal(t, "gemini-2.5-flash", summaries[0].ModelName, "output is sorted by model")
	assert.Equal(t, "gpt-4.1", summaries[1].ModelName)
	for _, s := range summaries {
		assert.Equal(t, 2, s.TaskCount)
		assert.Equal(t, 0.5, s.SuccessRate)
		assert.Equal(t, 2.0, s.AvgExtractionTimeSeconds)
	}
}

func TestSummarize_IsOrderIndependent(t *testing.T) {
	results := []ExtractionResult{
		resultFor("a", true, 1.0),
		resultFor("b", false, 2.0),
		resultFor("a", false, 3.0),
		resultFor("b", true, 4.0),
		resultFor("a", true, 5.0),
	}

	expected := Summarize(results)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := make([]ExtractionResult, len(results))
		copy(shuffled, results)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, expected, Summarize(shuffled))
	}
}

func TestSummarize_EmptyInput(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}
