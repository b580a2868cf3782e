// Package tokenutils provides the rough token accounting used by the history
// tiers. Counts are word/punctuation splits, not model BPE tokens; exact
// counting is a provider concern.
package tokenutils

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`\w+|[^\s\w]`)

// Count returns the approximate token count of text.
func Count(text string) int {
	return len(tokenRe.FindAllStringIndex(text, -1))
}

// Truncate cuts text after maxTokens tokens, preserving the original
// spacing of what remains. Text at or under the cap is returned unchanged.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	locs := tokenRe.FindAllStringIndex(text, maxTokens+1)
	if len(locs) <= maxTokens {
		return text
	}
	return strings.TrimSpace(text[:locs[maxTokens-1][1]])
}
