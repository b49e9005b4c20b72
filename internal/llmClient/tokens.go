package llmclient

import "strings"

// CountTokens estimates tokens for text when a backend does not report
// usage. It takes the larger of the word-based and character-based
// estimates, which tracks BPE tokenizers closely enough for cost logging.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	byWords := len(strings.Fields(text)) * 4 / 3
	byChars := len(text) / 4
	n := max(byWords, byChars)
	if n == 0 {
		n = 1
	}
	return n
}

// usageOrEstimate fills missing token counts from the estimator.
func usageOrEstimate(c Completion, prompt string) Completion {
	if c.InputTokens <= 0 {
		c.InputTokens = CountTokens(prompt)
	}
	if c.OutputTokens <= 0 {
		c.OutputTokens = CountTokens(c.Text)
	}
	return c
}
