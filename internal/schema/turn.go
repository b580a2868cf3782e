// Package schema defines the record types and capability interfaces shared
// across halcyon: conversation turns and their tiered compressions, the
// compression gateway, and the LLM provider contract.
package schema

import (
	"fmt"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"

	// SpeakerMixed is used for summary attribution when a batch spans
	// more than one speaker.
	SpeakerMixed Speaker = "mixed"
)

// SessionKey identifies one history session: a bot and the persona pair
// active in its chat. Different keys never share tier state.
type SessionKey struct {
	Bot     string
	Persona string
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s:%s", k.Bot, k.Persona)
}

// Turn is one exchanged message held verbatim (or lightly compressed) in
// tier 0. Seq is a session-wide monotonic counter used by the history store
// to merge flushes without duplication.
//
// CompressedText is empty until the turn exceeds the tier-0 token cap and
// compression runs; once set it is never rewritten. Degraded marks turns
// whose compression fell back to hard truncation.
type Turn struct {
	Seq              int64     `json:"seq"`
	Timestamp        time.Time `json:"ts"`
	Speaker          Speaker   `json:"speaker"`
	RawText          string    `json:"raw_text"`
	CompressedText   string    `json:"compressed_text,omitempty"`
	Tokens           int       `json:"token_count"`
	CompressedTokens int       `json:"compressed_token_count,omitempty"`
	Lang             string    `json:"language_code"`
	Degraded         bool      `json:"degraded,omitempty"`
}

// DisplayText returns the compressed text when present, else the raw text.
// This is what the prompt assembler and the tier-1 promoter consume.
func (t Turn) DisplayText() string {
	if t.CompressedText != "" {
		return t.CompressedText
	}
	return t.RawText
}

// Summary is a tier-1 entry: one evicted Turn compressed to the tier-1 cap.
type Summary struct {
	Seq       int64     `json:"seq"`
	SpanStart time.Time `json:"span_start"`
	SpanEnd   time.Time `json:"span_end"`
	Speaker   Speaker   `json:"speaker_attribution"`
	Text      string    `json:"text"`
	Tokens    int       `json:"token_count"`
	Lang      string    `json:"language_code"`
	Degraded  bool      `json:"degraded,omitempty"`
}

// MegaSummary is a tier-2 entry: a batch of Summaries merged with the
// preceding MegaSummary's text as context. Keywords preserve insertion
// order so the oldest can be evicted first when the cap is reached.
//
// Partial marks megas built from fewer summaries than the configured batch
// size (e.g. a drain at shutdown or persona switch).
type MegaSummary struct {
	Seq       int64     `json:"seq"`
	Text      string    `json:"text"`
	Keywords  []string  `json:"keywords,omitempty"`
	Tokens    int       `json:"token_count"`
	SpanStart time.Time `json:"span_start"`
	SpanEnd   time.Time `json:"span_end"`
	Lang      string    `json:"language_code"`
	Partial   bool      `json:"source_is_partial,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"`
}
