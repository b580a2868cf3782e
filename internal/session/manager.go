package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/halcyonchat/halcyon/internal/config"
	"github.com/halcyonchat/halcyon/internal/history"
	"github.com/halcyonchat/halcyon/internal/persona"
	"github.com/halcyonchat/halcyon/internal/schema"
)

// Manager loads, caches, and persists sessions, one per bot.
type Manager struct {
	cfg      *config.Config
	store    *history.Store
	comp     schema.Compressor
	personas *persona.Loader

	cache sync.Map // bot → *Session
}

func NewManager(cfg *config.Config, store *history.Store, comp schema.Compressor, personas *persona.Loader) *Manager {
	return &Manager{cfg: cfg, store: store, comp: comp, personas: personas}
}

// Get returns the cached session for bot, building it (and loading its
// history from disk) on first use.
func (m *Manager) Get(bot string) (*Session, error) {
	if v, ok := m.cache.Load(bot); ok {
		return v.(*Session), nil
	}

	s, err := m.build(bot)
	if err != nil {
		return nil, err
	}

	actual, _ := m.cache.LoadOrStore(bot, s)
	return actual.(*Session), nil
}

func (m *Manager) build(bot string) (*Session, error) {
	bc := m.cfg.Bot(bot)

	char, err := m.personas.LoadChar(bc.Char)
	if err != nil {
		return nil, fmt.Errorf("load char for %s: %w", bot, err)
	}
	user, err := m.personas.LoadUser(bc.User)
	if err != nil {
		return nil, fmt.Errorf("load user for %s: %w", bot, err)
	}

	s := &Session{
		Bot:       bot,
		Char:      char,
		User:      user,
		Service:   m.cfg.ServiceFor(bot),
		Model:     bc.Model,
		HistoryOn: bc.HistoryEnabled,
	}
	if s.Model == "" {
		s.Model = m.cfg.Defaults.Model
	}
	if bc.Temperature != nil {
		s.Temperature = *bc.Temperature
	} else {
		s.Temperature = m.cfg.Defaults.Temperature
	}
	if s.MaxTokens = bc.MaxTokens; s.MaxTokens <= 0 {
		s.MaxTokens = m.cfg.Defaults.MaxTokens
	}

	key := schema.SessionKey{Bot: bot, Persona: persona.PairID(user.Name, char.Name)}
	s.Memory = m.store.Load(key, m.cfg.MemoryParamsFor(bot), m.comp)
	return s, nil
}

// SwitchChar flushes the current history, drains pending summaries, and
// swaps in the named character with a fresh (or previously persisted)
// history for the new pairing.
func (m *Manager) SwitchChar(ctx context.Context, s *Session, name string) error {
	card, err := m.personas.LoadChar(name)
	if err != nil {
		return err
	}
	return m.switchPersona(ctx, s, func() { s.Char = card })
}

// SwitchUser is SwitchChar for the human side of the pairing.
func (m *Manager) SwitchUser(ctx context.Context, s *Session, name string) error {
	card, err := m.personas.LoadUser(name)
	if err != nil {
		return err
	}
	return m.switchPersona(ctx, s, func() { s.User = card })
}

func (m *Manager) switchPersona(ctx context.Context, s *Session, apply func()) error {
	s.Memory.Drain(ctx)
	if _, err := m.store.Flush(s.Memory); err != nil {
		return fmt.Errorf("flush before persona switch: %w", err)
	}

	apply()

	key := schema.SessionKey{Bot: s.Bot, Persona: s.PairID()}
	s.Memory = m.store.Load(key, m.cfg.MemoryParamsFor(s.Bot), m.comp)
	return nil
}

// Flush persists one session's history if it has unflushed entries.
func (m *Manager) Flush(s *Session) error {
	if s.Memory.AppendsSinceFlush() == 0 {
		return nil
	}
	path, err := m.store.Flush(s.Memory)
	if err != nil {
		return err
	}
	slog.Debug("history flushed", "bot", s.Bot, "path", path)
	return nil
}

// FlushAll persists every cached session; errors are logged, not returned,
// so one failing session does not block the rest.
func (m *Manager) FlushAll() {
	m.cache.Range(func(_, v any) bool {
		s := v.(*Session)
		if err := m.Flush(s); err != nil {
			slog.Error("flush failed", "bot", s.Bot, "error", err)
		}
		return true
	})
}

// DrainAll merges pending summaries and flushes every session. Called on
// shutdown.
func (m *Manager) DrainAll(ctx context.Context) {
	m.cache.Range(func(_, v any) bool {
		s := v.(*Session)
		_, pending, _ := s.Memory.Lens()
		s.Memory.Drain(ctx)
		if s.Memory.AppendsSinceFlush() == 0 && pending == 0 {
			return true
		}
		// Flush via the store directly: the drained mega-summaries must be
		// persisted even when the append counter is already at zero.
		if _, err := m.store.Flush(s.Memory); err != nil {
			slog.Error("shutdown flush failed", "bot", s.Bot, "error", err)
		}
		return true
	})
}
