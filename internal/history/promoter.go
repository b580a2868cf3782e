package history

import (
	"context"
	"log/slog"

	"github.com/halcyonchat/halcyon/internal/schema"
	"github.com/halcyonchat/halcyon/internal/shared/tokenutils"
)

// promoteOldest evicts the oldest tier-0 turn into a tier-1 summary, then
// merges tier-1 overflow until its invariant holds. Caller holds s.mu.
func (s *Session) promoteOldest(ctx context.Context) {
	turn := s.tier0[0]
	s.tier0 = s.tier0[1:]

	sum := s.promote(ctx, turn)
	s.tier1 = append(s.tier1, sum)
	slog.Debug("promoted to tier1",
		"session", s.key, "speaker", sum.Speaker, "tokens", sum.Tokens, "degraded", sum.Degraded)

	for len(s.tier1) > s.params.N1 {
		s.mergeOldest(ctx, s.params.MergeBatchSize())
	}
}

// promote converts one evicted Turn into a Summary capped at T1Cap tokens.
// The source is the turn's compressed text when present — a turn over the
// tier-0 cap always has one by the time it is promoted — so a gateway
// failure here never re-exposes raw overflow text.
func (s *Session) promote(ctx context.Context, turn schema.Turn) schema.Summary {
	src := turn.DisplayText()
	text, degraded := s.compress(ctx, src, s.params.T1Cap, turn.Lang)

	return schema.Summary{
		Seq:       s.takeSeq(),
		SpanStart: turn.Timestamp,
		SpanEnd:   turn.Timestamp,
		Speaker:   turn.Speaker,
		Text:      text,
		Tokens:    tokenutils.Count(text),
		Lang:      turn.Lang,
		Degraded:  degraded || turn.Degraded,
	}
}

func (s *Session) takeSeq() int64 {
	seq := s.nextSeq
	s.nextSeq++
	return seq
}
