// Package engine consumes inbound messages, runs them through the command
// layer or the memory-and-LLM pipeline, and publishes replies.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/halcyonchat/halcyon/internal/bus"
	"github.com/halcyonchat/halcyon/internal/commands"
	"github.com/halcyonchat/halcyon/internal/config"
	"github.com/halcyonchat/halcyon/internal/history"
	"github.com/halcyonchat/halcyon/internal/providers"
	"github.com/halcyonchat/halcyon/internal/schema"
	"github.com/halcyonchat/halcyon/internal/session"
	"github.com/halcyonchat/halcyon/internal/shared/stringutils"
)

// Engine is the conversation loop.
type Engine struct {
	cfg      *config.Config
	b        *bus.MessageBus
	sessions *session.Manager
	cmds     *commands.Registry

	mu      sync.Mutex
	clients map[string]schema.LLMProvider // service name → client
}

func New(cfg *config.Config, b *bus.MessageBus, sessions *session.Manager, cmds *commands.Registry) *Engine {
	return &Engine{
		cfg:      cfg,
		b:        b,
		sessions: sessions,
		cmds:     cmds,
		clients:  map[string]schema.LLMProvider{},
	}
}

// Run consumes the inbound bus until ctx is cancelled. Each message is
// processed in its own goroutine; the per-session lock keeps turns to the
// same bot in arrival order.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine started", "default_bot", e.cfg.DefaultBot)
	for {
		select {
		case msg := <-e.b.Inbound:
			go e.handle(ctx, msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) handle(ctx context.Context, msg bus.InboundMessage) {
	reply, err := e.Process(ctx, e.cfg.DefaultBot, msg.Content())
	if err != nil {
		slog.Error("process failed", "channel", msg.Channel(), "error", err)
		reply = "Something went wrong talking to the model. Please try again."
	}
	if reply == "" {
		return
	}
	e.b.PublishOutbound(bus.NewOutboundMessage(msg.Channel(), msg.ChatID(), reply, msg.Metadata()))
}

// Process runs one turn for the named bot and returns the reply text.
// Used by the bus loop and directly by the CLI chat command and tests.
func (e *Engine) Process(ctx context.Context, bot, text string) (string, error) {
	s, err := e.sessions.Get(bot)
	if err != nil {
		return "", err
	}

	s.Lock()
	defer s.Unlock()

	if commands.IsCommand(text) {
		return e.cmds.Dispatch(ctx, s, text), nil
	}
	return e.converse(ctx, s, text)
}

func (e *Engine) converse(ctx context.Context, s *session.Session, text string) (string, error) {
	client, err := e.clientFor(s.Service)
	if err != nil {
		return "", err
	}

	var prompt string
	if s.HistoryOn {
		last, hasLast := s.Memory.LastTurn()
		block := history.ContextBlock{Now: time.Now()}
		if hasLast {
			block.LastSpeaker = last.Speaker
			block.LastTimestamp = last.Timestamp
		}
		prompt = history.BuildPrompt(s.Memory, s.Preamble(), block, text)
		s.Memory.Append(ctx, schema.SpeakerUser, text)
	} else {
		prompt = s.Preamble() + "\n\n" + text
	}

	resp, err := client.Chat(ctx, []schema.Message{schema.NewUserMessage(prompt)}, schema.ChatOptions{
		Model:       s.Model,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat with %s: %w", s.Service, err)
	}

	reply := stringutils.CleanReply(resp.Content)

	if s.HistoryOn {
		s.Memory.Append(ctx, schema.SpeakerAssistant, reply)
		e.flushIfDue(s)
	}
	return reply, nil
}

// flushIfDue persists the session once enough appends have accumulated.
func (e *Engine) flushIfDue(s *session.Session) {
	if every := s.Memory.Params().FlushEvery; every > 0 && s.Memory.AppendsSinceFlush() >= every {
		if err := e.sessions.Flush(s); err != nil {
			slog.Error("count-based flush failed", "bot", s.Bot, "error", err)
		}
	}
}

func (e *Engine) clientFor(service string) (schema.LLMProvider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.clients[service]; ok {
		return c, nil
	}

	sc, ok := e.cfg.Services[service]
	if !ok || sc.APIKey == "" {
		return nil, fmt.Errorf("service %q has no API key configured", service)
	}

	client := providers.New(providers.Params{
		APIKey:       sc.APIKey,
		APIBase:      sc.APIBase,
		DefaultModel: sc.Model,
		ServiceName:  service,
	})
	e.clients[service] = client
	return client, nil
}
