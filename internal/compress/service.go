// Package compress implements the local compression gateway: extractive
// TextRank summarisation, proper-noun keyword extraction, and statistical
// language detection. It satisfies schema.Compressor, so a remote
// summarisation service can replace it at composition time.
package compress

import (
	"context"
	"errors"
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/halcyonchat/halcyon/internal/schema"
	"github.com/halcyonchat/halcyon/internal/shared/tokenutils"
)

// Service is the in-process Compressor. Safe for concurrent use.
type Service struct {
	detector lingua.LanguageDetector
}

// NewService builds the service. The lingua detector is restricted to the
// languages the bot actually converses in; a wider set hurts both accuracy
// and startup time.
func NewService() *Service {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.German, lingua.French, lingua.Spanish).
		Build()
	return &Service{detector: detector}
}

// Summarize compresses text to approximately targetTokens tokens via
// TextRank. The work runs in its own goroutine so a pathological input
// cannot stall the ingestion path past the caller's deadline; a late
// result is discarded.
func (s *Service) Summarize(ctx context.Context, text string, targetTokens int, lang string) (string, error) {
	if tokenutils.Count(text) <= targetTokens {
		return text, nil
	}

	done := make(chan string, 1)
	go func() {
		sentences := splitSentences(text)
		picked := textRank(sentences, targetTokens, stopwordsFor(lang))
		done <- strings.Join(picked, " ")
	}()

	select {
	case out := <-done:
		if out == "" {
			return "", errNoSentences
		}
		return out, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// errNoSentences signals input without usable sentence boundaries; callers
// fall back to truncation.
var errNoSentences = errors.New("compress: no sentence boundaries found")

// ExtractKeywords returns up to limit proper-noun-like terms from text.
func (s *Service) ExtractKeywords(ctx context.Context, text string, lang string, limit int) ([]string, error) {
	done := make(chan []string, 1)
	go func() {
		done <- extractKeywords(text, lang, limit)
	}()

	select {
	case out := <-done:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DetectLanguage returns the two-letter code of the detected language,
// falling back to "en" when lingua is not confident or the text is empty.
func (s *Service) DetectLanguage(_ context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return "en"
	}
	lang, ok := s.detector.DetectLanguageOf(text)
	if !ok {
		return "en"
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

var _ schema.Compressor = (*Service)(nil)
