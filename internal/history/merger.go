package history

import (
	"context"
	"log/slog"
	"strings"

	"github.com/halcyonchat/halcyon/internal/schema"
	"github.com/halcyonchat/halcyon/internal/shared/tokenutils"
)

// mergeOldest consumes the oldest batchSize tier-1 summaries (fewer when
// tier 1 holds less, which marks the result partial) into one tier-2
// mega-summary. Caller holds s.mu.
func (s *Session) mergeOldest(ctx context.Context, batchSize int) {
	if len(s.tier1) == 0 {
		return
	}
	n := batchSize
	partial := false
	if len(s.tier1) < n {
		n = len(s.tier1)
		partial = true
	}

	batch := make([]schema.Summary, n)
	copy(batch, s.tier1[:n])
	s.tier1 = s.tier1[n:]

	lang := dominantLanguage(batch)

	// Keyword extraction runs per source language BEFORE the texts are
	// merged: extracting from a mixed-language concatenation silently
	// drops recall.
	keywords := s.extractBatchKeywords(ctx, batch)

	var prev *schema.MegaSummary
	if len(s.tier2) > 0 {
		prev = &s.tier2[len(s.tier2)-1]
	}

	texts := make([]string, 0, n+1)
	if prev != nil {
		texts = append(texts, prev.Text)
	}
	for _, sum := range batch {
		texts = append(texts, sum.Text)
	}
	combined := strings.Join(texts, "\n")

	text, degraded := s.compress(ctx, combined, s.params.T2Cap, lang)

	mega := schema.MegaSummary{
		Seq:       s.takeSeq(),
		Text:      text,
		Keywords:  s.mergeKeywords(prev, keywords),
		Tokens:    tokenutils.Count(text),
		SpanStart: batch[0].SpanStart,
		SpanEnd:   batch[n-1].SpanEnd,
		Lang:      lang,
		Partial:   partial,
		Degraded:  degraded,
	}

	s.tier2 = append(s.tier2, mega)
	for s.params.MaxMegaSummaries > 0 && len(s.tier2) > s.params.MaxMegaSummaries {
		s.tier2 = s.tier2[1:]
	}

	slog.Debug("merged to tier2",
		"session", s.key, "batch", n, "lang", lang,
		"keywords", len(mega.Keywords), "partial", partial, "degraded", degraded)
}

// Drain merges every remaining tier-1 summary into tier 2, batch by batch.
// The final short batch is flagged partial. Used at shutdown and on persona
// switches so no mid-term context is stranded below the durable tiers.
func (s *Session) Drain(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.tier1) > 0 {
		s.mergeOldest(ctx, s.params.MergeBatchSize())
	}
}

// extractBatchKeywords groups the batch by language, extracts keywords from
// each group's concatenated text, and returns them in first-appearance
// order. Gateway failures lose that group's keywords, nothing else.
func (s *Session) extractBatchKeywords(ctx context.Context, batch []schema.Summary) []string {
	var langOrder []string
	grouped := map[string][]string{}
	for _, sum := range batch {
		if _, ok := grouped[sum.Lang]; !ok {
			langOrder = append(langOrder, sum.Lang)
		}
		grouped[sum.Lang] = append(grouped[sum.Lang], sum.Text)
	}

	var out []string
	for _, lang := range langOrder {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		kws, err := s.comp.ExtractKeywords(cctx, strings.Join(grouped[lang], "\n"), lang, s.params.MaxKeywords)
		cancel()
		if err != nil {
			slog.Warn("keyword extraction failed", "session", s.key, "lang", lang, "err", err)
			continue
		}
		out = append(out, kws...)
	}
	return out
}

// mergeKeywords appends incoming keywords to the previous mega-summary's
// set, deduplicating case-insensitively and evicting the oldest entries
// once the cap is exceeded.
func (s *Session) mergeKeywords(prev *schema.MegaSummary, incoming []string) []string {
	var merged []string
	seen := map[string]bool{}

	add := func(kw string) {
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			return
		}
		seen[key] = true
		merged = append(merged, kw)
	}

	if prev != nil {
		for _, kw := range prev.Keywords {
			add(kw)
		}
	}
	for _, kw := range incoming {
		add(kw)
	}

	if limit := s.params.MaxKeywords; limit > 0 && len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}
	return merged
}

// dominantLanguage picks the majority language across the batch; ties go to
// the earliest language seen.
func dominantLanguage(batch []schema.Summary) string {
	counts := map[string]int{}
	var order []string
	for _, sum := range batch {
		if counts[sum.Lang] == 0 {
			order = append(order, sum.Lang)
		}
		counts[sum.Lang]++
	}

	best := ""
	for _, lang := range order {
		if best == "" || counts[lang] > counts[best] {
			best = lang
		}
	}
	if best == "" {
		best = "en"
	}
	return best
}
