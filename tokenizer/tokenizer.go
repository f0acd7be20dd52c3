package tokenizer

import "strings"

// Tokenizer counts tokens for prompt budgeting.
type Tokenizer interface {
	CountTokens(text string) int
}

// Heuristic approximates token counts as words plus punctuation weight.
// Used when no model-specific encoder is configured.
type Heuristic struct{}

// CountTokens returns an approximate token count
func (Heuristic) CountTokens(text string) int {
	fields := strings.Fields(text)
	// Rough average of 1.3 tokens per word for English prose.
	return len(fields) + len(fields)/3
}
