package schema

import "context"

// Compressor is the text-compression capability consumed by the history
// tiers. Implementations may be slow; callers bound every call with a
// context deadline and degrade to deterministic truncation on failure.
// A result that arrives after the deadline is simply discarded.
type Compressor interface {
	// Summarize compresses text to approximately targetTokens tokens.
	// lang is a BCP-47-ish two-letter hint ("en", "de", ...).
	Summarize(ctx context.Context, text string, targetTokens int, lang string) (string, error)

	// ExtractKeywords returns up to limit named entities / salient terms
	// from text, in order of first appearance.
	ExtractKeywords(ctx context.Context, text string, lang string, limit int) ([]string, error)

	// DetectLanguage returns the two-letter language code of text,
	// falling back to "en" when detection is not confident.
	DetectLanguage(ctx context.Context, text string) string
}
