// Package history implements halcyon's tiered conversational memory: a
// bounded window of recent turns (tier 0), capacity-capped summaries of
// evicted turns (tier 1), and merged mega-summaries with keyword sets
// (tier 2), plus the prompt assembler and the durable store.
//
// A Session is owned by exactly one conversation-processing goroutine at a
// time; the internal mutex only guards against the periodic flusher reading
// tiers while a turn is being ingested.
package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/halcyonchat/halcyon/internal/schema"
	"github.com/halcyonchat/halcyon/internal/shared/tokenutils"
)

// DefaultGatewayTimeout bounds every compression-gateway call issued from
// the ingestion path. A call that runs past it degrades to truncation.
const DefaultGatewayTimeout = 10 * time.Second

// Session is the root aggregate: the three tiers for one (bot, persona-pair)
// key plus the counters that drive promotion and flushing.
type Session struct {
	key    schema.SessionKey
	params schema.MemoryParams

	comp    schema.Compressor
	timeout time.Duration

	tier0 []schema.Turn
	tier1 []schema.Summary
	tier2 []schema.MegaSummary

	nextSeq           int64
	appendsSinceFlush int

	mu sync.Mutex
}

// NewSession creates an empty session for key. params is fixed for the
// session's lifetime; reconfiguration means building a new session.
func NewSession(key schema.SessionKey, params schema.MemoryParams, comp schema.Compressor) *Session {
	return &Session{
		key:     key,
		params:  params,
		comp:    comp,
		timeout: DefaultGatewayTimeout,
		nextSeq: 1,
	}
}

// SetGatewayTimeout overrides the per-call compression deadline.
// Call before the first Append; the timeout is not synchronised.
func (s *Session) SetGatewayTimeout(d time.Duration) { s.timeout = d }

func (s *Session) Key() schema.SessionKey        { return s.key }
func (s *Session) Params() schema.MemoryParams   { return s.params }
func (s *Session) Compressor() schema.Compressor { return s.comp }

// Append ingests one exchanged message: detects its language, compresses it
// in place when it exceeds the tier-0 cap, and promotes overflow until the
// tier-0 invariant holds again. Compression failures degrade to truncation;
// Append never fails.
func (s *Session) Append(ctx context.Context, speaker schema.Speaker, text string) schema.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	lang := s.detectLanguage(ctx, text)
	tokens := tokenutils.Count(text)

	turn := schema.Turn{
		Seq:       s.takeSeq(),
		Timestamp: time.Now(),
		Speaker:   speaker,
		RawText:   text,
		Tokens:    tokens,
		Lang:      lang,
	}

	if tokens > s.params.T0Cap {
		compressed, degraded := s.compress(ctx, text, s.params.T0Cap, lang)
		turn.CompressedText = compressed
		turn.CompressedTokens = tokenutils.Count(compressed)
		turn.Degraded = degraded
		slog.Debug("tier0 in-place compression",
			"session", s.key, "tokens", tokens, "compressed", turn.CompressedTokens, "degraded", degraded)
	}

	s.tier0 = append(s.tier0, turn)
	s.appendsSinceFlush++

	for len(s.tier0) > s.params.N0 {
		s.promoteOldest(ctx)
	}

	return turn
}

// compress runs the gateway with the session deadline and falls back to a
// hard truncation on error or empty output. The returned text never exceeds
// targetTokens.
func (s *Session) compress(ctx context.Context, text string, targetTokens int, lang string) (string, bool) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.comp.Summarize(cctx, text, targetTokens, lang)
	if err != nil || out == "" {
		if err != nil {
			slog.Warn("compression unavailable, truncating", "session", s.key, "err", err)
		}
		return tokenutils.Truncate(text, targetTokens), true
	}
	if tokenutils.Count(out) > targetTokens {
		out = tokenutils.Truncate(out, targetTokens)
	}
	return out, false
}

func (s *Session) detectLanguage(ctx context.Context, text string) string {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.comp.DetectLanguage(cctx, text)
}

// Snapshot returns read-only copies of the three tiers, oldest first.
func (s *Session) Snapshot() ([]schema.Turn, []schema.Summary, []schema.MegaSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t0 := make([]schema.Turn, len(s.tier0))
	copy(t0, s.tier0)
	t1 := make([]schema.Summary, len(s.tier1))
	copy(t1, s.tier1)
	t2 := make([]schema.MegaSummary, len(s.tier2))
	copy(t2, s.tier2)
	return t0, t1, t2
}

// Lens returns the current size of each tier.
func (s *Session) Lens() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tier0), len(s.tier1), len(s.tier2)
}

// LastTurn returns the newest tier-0 turn, if any.
func (s *Session) LastTurn() (schema.Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tier0) == 0 {
		return schema.Turn{}, false
	}
	return s.tier0[len(s.tier0)-1], true
}

// DeleteLast removes the chronologically newest entry from whichever tier
// currently holds it. Returns false when all tiers are empty.
func (s *Session) DeleteLast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case len(s.tier0) > 0:
		s.tier0 = s.tier0[:len(s.tier0)-1]
	case len(s.tier1) > 0:
		s.tier1 = s.tier1[:len(s.tier1)-1]
	case len(s.tier2) > 0:
		s.tier2 = s.tier2[:len(s.tier2)-1]
	default:
		return false
	}
	return true
}

// AppendsSinceFlush reports how many turns arrived since the last flush.
func (s *Session) AppendsSinceFlush() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendsSinceFlush
}

func (s *Session) resetFlushCounter() {
	s.appendsSinceFlush = 0
}
