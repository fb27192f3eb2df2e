package llm

import "strings"

// Token estimation strategies for the document budget filter.
//
// Court sentences run long, and models reject prompts above their context
// window, so the batch runner screens documents against a configured token
// budget before scheduling any provider call. Exact tokenization differs
// per provider; these estimators trade precision for not needing a
// tokenizer dependency per backend.

// WordBasedTokenEstimator estimates tokens based on word count.
// Legal Portuguese averages slightly more tokens per word than English,
// so the ratio is configurable.
type WordBasedTokenEstimator struct{ TokensPerWord float64 }

// NewWordBasedTokenEstimator creates a word-based token estimator.
// A non-positive tokensPerWord falls back to 0.75, a reasonable default
// for Latin-script prose.
func NewWordBasedTokenEstimator(tokensPerWord float64) *WordBasedTokenEstimator {
	if tokensPerWord <= 0 {
		tokensPerWord = 0.75
	}
	return &WordBasedTokenEstimator{
		TokensPerWord: tokensPerWord,
	}
}

// EstimateTokens calculates token count based on whitespace-separated words.
func (e *WordBasedTokenEstimator) EstimateTokens(text string) int {
	words := strings.Fields(text)
	return int(float64(len(words)) * e.TokensPerWord)
}

// CharacterBasedTokenEstimator estimates tokens based on character count.
// More stable than word counting for text with long compound terms or
// heavy punctuation, such as statute citations.
type CharacterBasedTokenEstimator struct{ charsPerToken float64 }

// NewCharacterBasedTokenEstimator creates a character-based token estimator.
// A non-positive charactersPerToken falls back to 4.0.
func NewCharacterBasedTokenEstimator(charactersPerToken float64) *CharacterBasedTokenEstimator {
	if charactersPerToken <= 0 {
		charactersPerToken = 4.0
	}
	return &CharacterBasedTokenEstimator{
		charsPerToken: charactersPerToken,
	}
}

// EstimateTokens calculates token count based on character count.
func (e *CharacterBasedTokenEstimator) EstimateTokens(text string) int {
	return int(float64(len(text)) / e.charsPerToken)
}
