package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/halcyonchat/halcyon/internal/schema"
	"github.com/halcyonchat/halcyon/internal/shared/tokenutils"
)

// stubComp is a deterministic gateway: Summarize truncates to the target,
// ExtractKeywords returns a canned list, DetectLanguage returns a fixed code.
type stubComp struct {
	lang     string
	fail     bool
	keywords []string

	summarizeCalls int
	keywordCalls   int
}

func (c *stubComp) Summarize(_ context.Context, text string, targetTokens int, _ string) (string, error) {
	c.summarizeCalls++
	if c.fail {
		return "", errors.New("gateway down")
	}
	return tokenutils.Truncate(text, targetTokens), nil
}

func (c *stubComp) ExtractKeywords(_ context.Context, _ string, _ string, limit int) ([]string, error) {
	c.keywordCalls++
	if c.fail {
		return nil, errors.New("gateway down")
	}
	kws := c.keywords
	if limit > 0 && len(kws) > limit {
		kws = kws[:limit]
	}
	return append([]string(nil), kws...), nil
}

func (c *stubComp) DetectLanguage(_ context.Context, _ string) string {
	if c.lang == "" {
		return "en"
	}
	return c.lang
}

func testKey() schema.SessionKey {
	return schema.SessionKey{Bot: "halcyon", Persona: "friend_with_halcyon"}
}

func testParams() schema.MemoryParams {
	p := schema.DefaultMemoryParams()
	p.N0 = 10
	p.N1 = 20
	p.K = 5
	p.T0Cap = 120
	p.T1Cap = 30
	p.T2Cap = 150
	return p
}

func TestAppendStaysVerbatimUnderCapacity(t *testing.T) {
	s := NewSession(testKey(), testParams(), &stubComp{})

	for i := 0; i < 10; i++ {
		s.Append(context.Background(), schema.SpeakerUser, fmt.Sprintf("message %d", i))
	}

	n0, n1, n2 := s.Lens()
	if n0 != 10 || n1 != 0 || n2 != 0 {
		t.Fatalf("Lens = %d/%d/%d, want 10/0/0", n0, n1, n2)
	}

	tier0, _, _ := s.Snapshot()
	for i, turn := range tier0 {
		if turn.RawText != fmt.Sprintf("message %d", i) {
			t.Errorf("turn %d out of order: %q", i, turn.RawText)
		}
		if turn.CompressedText != "" {
			t.Errorf("short turn %d was compressed", i)
		}
	}
}

func TestAppendPromotesOldestOverCapacity(t *testing.T) {
	s := NewSession(testKey(), testParams(), &stubComp{})

	for i := 0; i < 11; i++ {
		speaker := schema.SpeakerUser
		if i%2 == 1 {
			speaker = schema.SpeakerAssistant
		}
		s.Append(context.Background(), speaker, fmt.Sprintf("message %d", i))
	}

	n0, n1, _ := s.Lens()
	if n0 != 10 || n1 != 1 {
		t.Fatalf("Lens = %d/%d, want 10/1", n0, n1)
	}

	tier0, tier1, _ := s.Snapshot()
	if tier0[0].RawText != "message 1" {
		t.Errorf("oldest kept turn = %q, want message 1", tier0[0].RawText)
	}
	sum := tier1[0]
	if sum.Speaker != schema.SpeakerUser {
		t.Errorf("summary speaker = %q, want user (message 0's speaker)", sum.Speaker)
	}
	if !strings.Contains(sum.Text, "message 0") {
		t.Errorf("summary text %q does not carry the evicted turn", sum.Text)
	}
}

func TestPromotionKeepsChronologicalOrder(t *testing.T) {
	s := NewSession(testKey(), testParams(), &stubComp{})

	for i := 0; i < 15; i++ {
		s.Append(context.Background(), schema.SpeakerUser, fmt.Sprintf("message %d", i))
	}

	n0, n1, _ := s.Lens()
	if n0 != 10 || n1 != 5 {
		t.Fatalf("Lens = %d/%d, want 10/5", n0, n1)
	}

	_, tier1, _ := s.Snapshot()
	for i, sum := range tier1 {
		if !strings.Contains(sum.Text, fmt.Sprintf("message %d", i)) {
			t.Errorf("summary %d = %q, want source message %d", i, sum.Text, i)
		}
	}
}

func TestMergeConsumesOneBatch(t *testing.T) {
	// Batch size is round(0.25*N1)=5 capped at K=5. Forcing every append
	// through tier 1 (N0=1), 22 appends yield 21 summaries, one over N1,
	// so exactly one merge of 5 fires.
	p := testParams()
	p.N0 = 1
	s := NewSession(testKey(), p, &stubComp{})

	for i := 0; i < 22; i++ {
		s.Append(context.Background(), schema.SpeakerUser, fmt.Sprintf("message %d", i))
	}

	n0, n1, n2 := s.Lens()
	if n0 != 1 || n1 != 16 || n2 != 1 {
		t.Fatalf("Lens = %d/%d/%d, want 1/16/1", n0, n1, n2)
	}

	_, tier1, tier2 := s.Snapshot()
	mega := tier2[0]
	if mega.Partial {
		t.Error("full batch flagged partial")
	}
	if !strings.Contains(mega.Text, "message 0") {
		t.Errorf("mega text %q does not start from the oldest batch entry", mega.Text)
	}
	// The oldest remaining summary must be the first one past the batch.
	if !strings.Contains(tier1[0].Text, "message 5") {
		t.Errorf("tier1[0] = %q, want source message 5", tier1[0].Text)
	}
}

func TestMergeFeedsPreviousMegaAsContext(t *testing.T) {
	p := testParams()
	p.N0 = 1
	p.N1 = 2
	p.K = 1
	p.T2Cap = 10_000
	s := NewSession(testKey(), p, &stubComp{})

	for i := 0; i < 6; i++ {
		s.Append(context.Background(), schema.SpeakerUser, fmt.Sprintf("topic%d", i))
	}

	_, _, tier2 := s.Snapshot()
	if len(tier2) < 2 {
		t.Fatalf("want at least 2 mega-summaries, got %d", len(tier2))
	}
	latest := tier2[len(tier2)-1]
	if !strings.Contains(latest.Text, "topic0") {
		t.Errorf("latest mega %q lost the earlier mega's context", latest.Text)
	}
}

func TestTier2EvictsOldestBeyondMax(t *testing.T) {
	p := testParams()
	p.N0 = 1
	p.N1 = 1
	p.K = 1
	p.MaxMegaSummaries = 2
	p.T2Cap = 5 // keep megas small so old topics drop out of the text
	s := NewSession(testKey(), p, &stubComp{})

	for i := 0; i < 8; i++ {
		s.Append(context.Background(), schema.SpeakerUser, fmt.Sprintf("m%d", i))
	}

	_, _, n2 := s.Lens()
	if n2 != 2 {
		t.Fatalf("tier2 len = %d, want capped at 2", n2)
	}
}

func TestOversizeTurnCompressedInPlace(t *testing.T) {
	p := testParams()
	p.T0Cap = 5
	s := NewSession(testKey(), p, &stubComp{})

	long := strings.Repeat("word ", 20)
	turn := s.Append(context.Background(), schema.SpeakerUser, long)

	if turn.CompressedText == "" {
		t.Fatal("oversize turn not compressed")
	}
	if turn.Degraded {
		t.Error("successful compression flagged degraded")
	}
	if turn.CompressedTokens > p.T0Cap {
		t.Errorf("compressed to %d tokens, cap is %d", turn.CompressedTokens, p.T0Cap)
	}
	if turn.RawText != long {
		t.Error("raw text must stay untouched")
	}
}

func TestExactCapTurnNotCompressed(t *testing.T) {
	p := testParams()
	p.T0Cap = 5
	s := NewSession(testKey(), p, &stubComp{})

	turn := s.Append(context.Background(), schema.SpeakerUser, "one two three four five")
	if turn.CompressedText != "" {
		t.Errorf("turn at exactly the cap was compressed: %q", turn.CompressedText)
	}

	over := s.Append(context.Background(), schema.SpeakerUser, "one two three four five six")
	if over.CompressedText == "" {
		t.Error("turn one token over the cap was not compressed")
	}
}

func TestGatewayFailureDegradesToTruncation(t *testing.T) {
	p := testParams()
	p.N0 = 1
	p.T0Cap = 5
	comp := &stubComp{fail: true}
	s := NewSession(testKey(), p, comp)

	long := strings.Repeat("word ", 50)
	for i := 0; i < 5; i++ {
		turn := s.Append(context.Background(), schema.SpeakerUser, long)
		if !turn.Degraded {
			t.Fatal("failed compression not flagged degraded")
		}
		if turn.CompressedTokens > p.T0Cap {
			t.Fatalf("fallback produced %d tokens, cap is %d", turn.CompressedTokens, p.T0Cap)
		}
	}

	_, tier1, _ := s.Snapshot()
	for _, sum := range tier1 {
		if !sum.Degraded {
			t.Error("promoted summary not flagged degraded")
		}
		if sum.Tokens > p.T1Cap {
			t.Errorf("summary has %d tokens, cap is %d", sum.Tokens, p.T1Cap)
		}
		if sum.Text == long {
			t.Error("promotion re-exposed raw overflow text")
		}
	}
}

func TestDrainMergesRemainderAsPartial(t *testing.T) {
	p := testParams()
	p.N0 = 1
	s := NewSession(testKey(), p, &stubComp{})

	// 4 appends → 3 tier-1 summaries, below the batch size of 5.
	for i := 0; i < 4; i++ {
		s.Append(context.Background(), schema.SpeakerUser, fmt.Sprintf("message %d", i))
	}

	s.Drain(context.Background())

	_, n1, n2 := s.Lens()
	if n1 != 0 || n2 != 1 {
		t.Fatalf("after Drain: tier1=%d tier2=%d, want 0/1", n1, n2)
	}
	_, _, tier2 := s.Snapshot()
	if !tier2[0].Partial {
		t.Error("short final batch not flagged partial")
	}
}

func TestDeleteLastWalksTiersNewestFirst(t *testing.T) {
	p := testParams()
	p.N0 = 1
	s := NewSession(testKey(), p, &stubComp{})

	for i := 0; i < 3; i++ {
		s.Append(context.Background(), schema.SpeakerUser, fmt.Sprintf("message %d", i))
	}
	s.Drain(context.Background())
	// State now: 1 turn, 0 summaries, 1 mega.

	if !s.DeleteLast() {
		t.Fatal("DeleteLast on populated tier0 returned false")
	}
	if n0, _, _ := s.Lens(); n0 != 0 {
		t.Fatalf("tier0 len = %d after delete", n0)
	}

	if !s.DeleteLast() {
		t.Fatal("DeleteLast should fall through to tier2")
	}
	if _, _, n2 := s.Lens(); n2 != 0 {
		t.Fatalf("tier2 len = %d after delete", n2)
	}

	if s.DeleteLast() {
		t.Error("DeleteLast on empty session returned true")
	}
}

func TestMergeKeywordsEvictsOldest(t *testing.T) {
	p := testParams()
	p.MaxKeywords = 10
	s := NewSession(testKey(), p, &stubComp{})

	prev := &schema.MegaSummary{Keywords: []string{
		"K1", "K2", "K3", "K4", "K5", "K6", "K7", "K8", "K9", "K10",
	}}
	merged := s.mergeKeywords(prev, []string{"New1", "New2", "New3", "New4"})

	if len(merged) != 10 {
		t.Fatalf("merged len = %d, want 10", len(merged))
	}
	if merged[0] != "K5" {
		t.Errorf("oldest surviving keyword = %q, want K5", merged[0])
	}
	if merged[9] != "New4" {
		t.Errorf("newest keyword = %q, want New4", merged[9])
	}
}

func TestMergeKeywordsDedupesCaseInsensitively(t *testing.T) {
	s := NewSession(testKey(), testParams(), &stubComp{})

	prev := &schema.MegaSummary{Keywords: []string{"Kira", "Berlin"}}
	merged := s.mergeKeywords(prev, []string{"kira", "Mars"})

	want := []string{"Kira", "Berlin", "Mars"}
	if len(merged) != len(want) {
		t.Fatalf("merged = %v, want %v", merged, want)
	}
	for i := range want {
		if merged[i] != want[i] {
			t.Errorf("merged[%d] = %q, want %q", i, merged[i], want[i])
		}
	}
}

func TestDominantLanguageMajorityAndTies(t *testing.T) {
	batch := []schema.Summary{{Lang: "de"}, {Lang: "en"}, {Lang: "de"}}
	if got := dominantLanguage(batch); got != "de" {
		t.Errorf("majority = %q, want de", got)
	}

	tie := []schema.Summary{{Lang: "en"}, {Lang: "de"}}
	if got := dominantLanguage(tie); got != "en" {
		t.Errorf("tie should go to the earliest language, got %q", got)
	}

	if got := dominantLanguage(nil); got != "en" {
		t.Errorf("empty batch = %q, want en fallback", got)
	}
}

func TestSeqStrictlyIncreasesAcrossTiers(t *testing.T) {
	p := testParams()
	p.N0 = 1
	s := NewSession(testKey(), p, &stubComp{})

	for i := 0; i < 8; i++ {
		s.Append(context.Background(), schema.SpeakerUser, fmt.Sprintf("message %d", i))
	}
	s.Drain(context.Background())

	tier0, tier1, tier2 := s.Snapshot()
	var all []int64
	for _, t2 := range tier2 {
		all = append(all, t2.Seq)
	}
	for _, t1 := range tier1 {
		all = append(all, t1.Seq)
	}
	for _, t0 := range tier0 {
		all = append(all, t0.Seq)
	}

	seen := map[int64]bool{}
	for _, seq := range all {
		if seq <= 0 {
			t.Errorf("non-positive seq %d", seq)
		}
		if seen[seq] {
			t.Errorf("duplicate seq %d", seq)
		}
		seen[seq] = true
	}
}
