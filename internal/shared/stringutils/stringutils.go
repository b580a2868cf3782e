package stringutils

import (
	"regexp"
	"strings"
)

var reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)

// CleanReply normalizes raw model output before it is stored or sent:
// removes <think>…</think> blocks that some models embed and trims
// surrounding whitespace.
func CleanReply(s string) string {
	return strings.TrimSpace(reThink.ReplaceAllString(s, ""))
}

// Ellipsize shortens a string to at most n runes, adding "…" if it was cut.
func Ellipsize(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
