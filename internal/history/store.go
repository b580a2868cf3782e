package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/halcyonchat/halcyon/internal/schema"
)

// Store persists sessions as per-key JSON documents under
// <dir>/<bot>/<persona>.json, rotating to <persona>_vN.json once the active
// file crosses the byte threshold.
//
// Flush merges: entries already persisted are never rewritten, new entries
// (identified by their session sequence number) are appended. The on-disk
// document is therefore an append-only archive; Load rebuilds a session
// from the tail of each tier.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create histories dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// fileState is the on-disk document for one session key.
type fileState struct {
	Bot       string               `json:"bot"`
	Persona   string               `json:"persona"`
	UpdatedAt string               `json:"updated_at"`
	Tier0     []schema.Turn        `json:"tier0"`
	Tier1     []schema.Summary     `json:"tier1"`
	Tier2     []schema.MegaSummary `json:"tier2"`
}

// Flush merges the session's tiers into the current file for its key and
// returns the path written. On write failure the in-memory tiers and the
// flush counter are left untouched so a retry loses nothing.
func (st *Store) Flush(s *Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, rotated, err := st.activePath(s.key, s.params.RotateBytes)
	if err != nil {
		return "", err
	}

	var state fileState
	if !rotated {
		state = st.readState(path)
	}
	state.Bot = s.key.Bot
	state.Persona = s.key.Persona
	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	state.Tier0 = append(state.Tier0, turnsAfter(s.tier0, maxTurnSeq(state.Tier0))...)
	state.Tier1 = append(state.Tier1, summariesAfter(s.tier1, maxSummarySeq(state.Tier1))...)
	state.Tier2 = append(state.Tier2, megasAfter(s.tier2, maxMegaSeq(state.Tier2))...)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal history %s: %w", s.key, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create history dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write history %s: %w", path, err)
	}

	s.resetFlushCounter()
	slog.Debug("history flushed", "session", s.key, "path", path, "bytes", len(data))
	return path, nil
}

// Load reads the latest file for key and rebuilds a session from the tail
// of each persisted tier. A missing or malformed file yields an empty
// session; Load never fails ingestion.
func (st *Store) Load(key schema.SessionKey, params schema.MemoryParams, comp schema.Compressor) *Session {
	s := NewSession(key, params, comp)

	path, ok := st.latestPath(key)
	if !ok {
		return s
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("history file unreadable, starting empty", "session", key, "path", path, "err", err)
		return s
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("history file malformed, starting empty", "session", key, "path", path, "err", err)
		return s
	}

	s.tier0 = tail(state.Tier0, params.N0)
	s.tier1 = tail(state.Tier1, params.N1)
	s.tier2 = tail(state.Tier2, params.MaxMegaSummaries)

	maxSeq := maxTurnSeq(state.Tier0)
	if v := maxSummarySeq(state.Tier1); v > maxSeq {
		maxSeq = v
	}
	if v := maxMegaSeq(state.Tier2); v > maxSeq {
		maxSeq = v
	}
	s.nextSeq = maxSeq + 1

	slog.Info("history loaded",
		"session", key, "path", path,
		"tier0", len(s.tier0), "tier1", len(s.tier1), "tier2", len(s.tier2))
	return s
}

// ListFiles returns the history file names persisted for a bot, sorted.
func (st *Store) ListFiles(bot string) ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(st.dir, safeFilename(bot), "*.json"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, p := range entries {
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)
	return names, nil
}

// ---------------------------------------------------------------------------
// Path resolution

var versionRe = regexp.MustCompile(`_v(\d+)\.json$`)

// latestPath finds the highest-versioned file for key.
func (st *Store) latestPath(key schema.SessionKey) (string, bool) {
	base := st.basePath(key)

	best, bestVer := "", -1
	candidates, _ := filepath.Glob(base[:len(base)-len(".json")] + "*.json")
	for _, p := range candidates {
		ver := fileVersion(p, base)
		if ver > bestVer {
			best, bestVer = p, ver
		}
	}
	if bestVer < 0 {
		return "", false
	}
	return best, true
}

// activePath returns the file the next flush should write: the latest
// version, or a bumped one when the latest has crossed rotateBytes.
// rotated reports that the path is fresh and must not be merged with.
func (st *Store) activePath(key schema.SessionKey, rotateBytes int64) (path string, rotated bool, err error) {
	latest, ok := st.latestPath(key)
	if !ok {
		return st.basePath(key), false, nil
	}

	info, err := os.Stat(latest)
	if err != nil {
		return "", false, fmt.Errorf("stat history %s: %w", latest, err)
	}
	if rotateBytes <= 0 || info.Size() < rotateBytes {
		return latest, false, nil
	}

	base := st.basePath(key)
	next := fileVersion(latest, base) + 1
	if next < 2 {
		next = 2
	}
	return base[:len(base)-len(".json")] + "_v" + strconv.Itoa(next) + ".json", true, nil
}

func (st *Store) basePath(key schema.SessionKey) string {
	return filepath.Join(st.dir, safeFilename(key.Bot), safeFilename(key.Persona)+".json")
}

// fileVersion parses the _vN suffix; the unsuffixed base file is version 1.
func fileVersion(path, base string) int {
	if path == base {
		return 1
	}
	m := versionRe.FindStringSubmatch(path)
	if m == nil {
		return -1
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return v
}

// readState loads an existing document, treating unreadable or malformed
// content as empty (it will be superseded by the merged write).
func (st *Store) readState(path string) fileState {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileState{}
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("existing history file malformed, rewriting", "path", path, "err", err)
		return fileState{}
	}
	return state
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?* `
	out := []rune(name)
	for i, r := range out {
		for _, u := range unsafe {
			if r == u {
				out[i] = '_'
				break
			}
		}
	}
	return string(out)
}

// ---------------------------------------------------------------------------
// Merge helpers

func maxTurnSeq(ts []schema.Turn) int64 {
	var max int64
	for _, t := range ts {
		if t.Seq > max {
			max = t.Seq
		}
	}
	return max
}

func maxSummarySeq(ss []schema.Summary) int64 {
	var max int64
	for _, s := range ss {
		if s.Seq > max {
			max = s.Seq
		}
	}
	return max
}

func maxMegaSeq(ms []schema.MegaSummary) int64 {
	var max int64
	for _, m := range ms {
		if m.Seq > max {
			max = m.Seq
		}
	}
	return max
}

func turnsAfter(ts []schema.Turn, seq int64) []schema.Turn {
	var out []schema.Turn
	for _, t := range ts {
		if t.Seq > seq {
			out = append(out, t)
		}
	}
	return out
}

func summariesAfter(ss []schema.Summary, seq int64) []schema.Summary {
	var out []schema.Summary
	for _, s := range ss {
		if s.Seq > seq {
			out = append(out, s)
		}
	}
	return out
}

func megasAfter(ms []schema.MegaSummary, seq int64) []schema.MegaSummary {
	var out []schema.MegaSummary
	for _, m := range ms {
		if m.Seq > seq {
			out = append(out, m)
		}
	}
	return out
}

func tail[T any](entries []T, n int) []T {
	if n <= 0 || len(entries) <= n {
		return append([]T(nil), entries...)
	}
	return append([]T(nil), entries[len(entries)-n:]...)
}
