// Package tokenizer estimates token counts for cost projection. The
// counts are heuristic; billing-grade accounting comes from the usage
// fields the providers return with each response.
package tokenizer

import "strings"

// CountTokens estimates the token count of text. English prose runs
// about 3 words per 4 tokens, and every non-empty text costs at least
// one token.
func CountTokens(text string) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	return max(len(words)*4/3, 1)
}

// CountAll sums the estimate over several texts, such as the messages
// of one chat record.
func CountAll(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += CountTokens(t)
	}
	return total
}
