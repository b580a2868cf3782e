// Package session holds the live per-bot conversation state: the active
// persona pairing, the LLM settings in effect, and the tiered memory behind
// them. The Manager caches sessions and mediates persona switches, which
// flush the outgoing history before the swap.
package session

import (
	"sync"

	"github.com/halcyonchat/halcyon/internal/history"
	"github.com/halcyonchat/halcyon/internal/persona"
)

// Session is one bot's live conversation.
type Session struct {
	Bot string

	Char persona.CharCard
	User persona.UserCard

	// LLM settings, adjustable at runtime via commands.
	Service     string
	Model       string
	Temperature float64
	MaxTokens   int

	HistoryOn bool

	Memory *history.Session

	mu sync.Mutex
}

// Lock serialises message processing for the session; the engine holds it
// for the duration of one turn so concurrent messages to the same bot are
// handled in arrival order.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// PairID is the persona pairing identifier keying the history file.
func (s *Session) PairID() string {
	return persona.PairID(s.User.Name, s.Char.Name)
}

// Preamble renders the system message for the current pairing.
func (s *Session) Preamble() string {
	return persona.Preamble(s.Char, s.User)
}
