package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halcyonchat/halcyon/internal/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func fill(t *testing.T, s *Session, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s.Append(context.Background(), schema.SpeakerUser, fmt.Sprintf("message %d", i))
	}
}

func TestFlushLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)
	comp := &stubComp{}

	p := testParams()
	p.N0 = 1
	s := NewSession(testKey(), p, comp)
	fill(t, s, 8) // 1 turn + 7 summaries

	path, err := st.Flush(s)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if filepath.Base(path) != "friend_with_halcyon.json" {
		t.Errorf("unexpected file name %s", filepath.Base(path))
	}
	if s.AppendsSinceFlush() != 0 {
		t.Error("flush did not reset the append counter")
	}

	loaded := st.Load(testKey(), p, comp)
	n0, n1, n2 := loaded.Lens()
	if n0 != 1 || n1 != 7 || n2 != 0 {
		t.Fatalf("loaded Lens = %d/%d/%d, want 1/7/0", n0, n1, n2)
	}

	// New appends must continue the sequence, not reuse persisted numbers.
	// Capture the persisted max before appending: the append itself can
	// trigger a promotion that mints even newer summary numbers.
	_, tier1, _ := loaded.Snapshot()
	persistedMax := tier1[len(tier1)-1].Seq // newest loaded entry
	turn := loaded.Append(context.Background(), schema.SpeakerUser, "fresh")
	if turn.Seq <= persistedMax {
		t.Errorf("seq %d not past persisted max %d", turn.Seq, persistedMax)
	}
}

func TestDoubleFlushIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	comp := &stubComp{}

	s := NewSession(testKey(), testParams(), comp)
	fill(t, s, 3)

	path, err := st.Flush(s)
	if err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := st.Flush(s); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Count(string(first), `"raw_text"`) != strings.Count(string(second), `"raw_text"`) {
		t.Error("second flush duplicated entries")
	}
}

func TestFlushAppendsOnlyNewEntries(t *testing.T) {
	st := newTestStore(t)
	comp := &stubComp{}
	p := testParams()

	s := NewSession(testKey(), p, comp)
	fill(t, s, 2)
	if _, err := st.Flush(s); err != nil {
		t.Fatal(err)
	}

	fill(t, s, 3)
	path, err := st.Flush(s)
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), `"raw_text"`); got != 5 {
		t.Errorf("persisted %d turns, want 5", got)
	}
}

func TestLoadTakesTailOfPersistedTiers(t *testing.T) {
	st := newTestStore(t)
	comp := &stubComp{}

	p := testParams()
	s := NewSession(testKey(), p, comp)
	fill(t, s, 10)
	if _, err := st.Flush(s); err != nil {
		t.Fatal(err)
	}
	fill(t, s, 8) // pushes 8 turns through; archive keeps all of them
	if _, err := st.Flush(s); err != nil {
		t.Fatal(err)
	}

	small := p
	small.N0 = 3
	loaded := st.Load(testKey(), small, comp)
	n0, _, _ := loaded.Lens()
	if n0 != 3 {
		t.Fatalf("loaded tier0 len = %d, want tail of 3", n0)
	}
	tier0, _, _ := loaded.Snapshot()
	if tier0[2].RawText != "message 7" {
		t.Errorf("newest loaded turn = %q, want message 7", tier0[2].RawText)
	}
}

func TestLoadMissingFileYieldsEmptySession(t *testing.T) {
	st := newTestStore(t)
	s := st.Load(testKey(), testParams(), &stubComp{})
	if n0, n1, n2 := s.Lens(); n0+n1+n2 != 0 {
		t.Errorf("missing file should load empty, got %d/%d/%d", n0, n1, n2)
	}
}

func TestLoadMalformedFileYieldsEmptySession(t *testing.T) {
	st := newTestStore(t)
	comp := &stubComp{}

	s := NewSession(testKey(), testParams(), comp)
	fill(t, s, 2)
	path, err := st.Flush(s)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded := st.Load(testKey(), testParams(), comp)
	if n0, _, _ := loaded.Lens(); n0 != 0 {
		t.Errorf("malformed file should load empty, got %d turns", n0)
	}
	// Ingestion keeps working on the recovered-empty session.
	loaded.Append(context.Background(), schema.SpeakerUser, "still alive")
}

func TestRotationStartsFreshVersionedFile(t *testing.T) {
	st := newTestStore(t)
	comp := &stubComp{}

	p := testParams()
	p.RotateBytes = 1 // force rotation on every flush after the first
	s := NewSession(testKey(), p, comp)

	fill(t, s, 2)
	first, err := st.Flush(s)
	if err != nil {
		t.Fatal(err)
	}

	fill(t, s, 2)
	second, err := st.Flush(s)
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Fatalf("flush past the byte threshold did not rotate (%s)", second)
	}
	if !strings.HasSuffix(second, "_v2.json") {
		t.Errorf("rotated file = %s, want _v2.json suffix", second)
	}

	// The fresh file carries the full in-memory state.
	data, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), `"raw_text"`); got != 4 {
		t.Errorf("rotated file has %d turns, want full state of 4", got)
	}

	files, err := st.ListFiles("halcyon")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("ListFiles = %v, want both versions", files)
	}
}

func TestLatestPathPrefersHighestNumericVersion(t *testing.T) {
	st := newTestStore(t)
	dir := filepath.Join(st.dir, "halcyon")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `{"bot":"halcyon","persona":"friend_with_halcyon","tier0":[],"tier1":[],"tier2":[]}`
	for _, name := range []string{"friend_with_halcyon_v9.json", "friend_with_halcyon_v10.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	path, ok := st.latestPath(testKey())
	if !ok {
		t.Fatal("latestPath found nothing")
	}
	if !strings.HasSuffix(path, "_v10.json") {
		t.Errorf("latestPath = %s, want _v10 (numeric, not lexical, ordering)", path)
	}
}

func TestSafeFilename(t *testing.T) {
	got := safeFilename(`a b/c\d:e`)
	if strings.ContainsAny(got, `<>:"/\|?* `) {
		t.Errorf("safeFilename left unsafe characters: %q", got)
	}
}
