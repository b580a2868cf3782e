package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/halcyonchat/halcyon/internal/config"
	"github.com/halcyonchat/halcyon/internal/history"
	"github.com/halcyonchat/halcyon/internal/providers"
	"github.com/halcyonchat/halcyon/internal/session"
)

// Deps are the collaborators the handlers act on.
type Deps struct {
	Cfg     *config.Config
	Manager *session.Manager
	Store   *history.Store
}

// NewRegistry builds the full command set.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{deps: deps, cmds: map[string]command{}}

	r.register("help", "/help", "show this message", r.cmdHelp)
	r.register("h", "/h [on|off|files|load|flush]", "history logging and persistence", r.cmdHistory)
	r.register("undo", "/undo", "delete the most recent history entry", r.cmdUndo)
	r.register("status", "/status", "show session settings and memory usage", r.cmdStatus)
	r.register("char", "/char <name>", "switch the character persona", r.cmdChar)
	r.register("user", "/user <name>", "switch the user persona", r.cmdUser)
	r.register("model", "/model <name>", "set the model for this session", r.cmdModel)
	r.register("cmodel", "/cmodel", "show the current model", r.cmdCurrentModel)
	r.register("temperature", "/temperature <0..2>", "set sampling temperature", r.cmdTemperature)
	r.register("maxtokens", "/maxtokens <n>", "set the completion token limit", r.cmdMaxTokens)
	r.register("service", "/service [name]", "show or switch the LLM service", r.cmdService)

	return r
}

func (r *Registry) cmdHelp(_ context.Context, _ *session.Session, _ []string) (string, error) {
	return r.helpText(), nil
}

func (r *Registry) cmdHistory(ctx context.Context, s *session.Session, args []string) (string, error) {
	if len(args) == 0 {
		state := "off"
		if s.HistoryOn {
			state = "on"
		}
		n0, n1, n2 := s.Memory.Lens()
		return fmt.Sprintf("History logging is %s. Tiers: %d turns, %d summaries, %d mega-summaries. Unflushed appends: %d.",
			state, n0, n1, n2, s.Memory.AppendsSinceFlush()), nil
	}

	switch strings.ToLower(args[0]) {
	case "on":
		s.HistoryOn = true
		return "History logging enabled.", nil
	case "off":
		s.HistoryOn = false
		return "History logging disabled.", nil
	case "flush":
		path, err := r.deps.Store.Flush(s.Memory)
		if err != nil {
			return "", fmt.Errorf("flush: %w", err)
		}
		return "History flushed to " + path + ".", nil
	case "files":
		files, err := r.deps.Store.ListFiles(s.Bot)
		if err != nil {
			return "", fmt.Errorf("list history files: %w", err)
		}
		if len(files) == 0 {
			return "No history files yet.", nil
		}
		return "History files:\n" + strings.Join(files, "\n"), nil
	case "load":
		s.Memory = r.deps.Store.Load(s.Memory.Key(), s.Memory.Params(), s.Memory.Compressor())
		n0, n1, n2 := s.Memory.Lens()
		return fmt.Sprintf("History reloaded: %d turns, %d summaries, %d mega-summaries.", n0, n1, n2), nil
	default:
		return "Usage: /h [on|off|files|load|flush]", nil
	}
}

func (r *Registry) cmdUndo(_ context.Context, s *session.Session, _ []string) (string, error) {
	if !s.Memory.DeleteLast() {
		return "Nothing to delete.", nil
	}
	return "Deleted the most recent history entry.", nil
}

func (r *Registry) cmdStatus(_ context.Context, s *session.Session, _ []string) (string, error) {
	n0, n1, n2 := s.Memory.Lens()
	model := s.Model
	if model == "" {
		model = "(service default)"
	}
	hist := "off"
	if s.HistoryOn {
		hist = "on"
	}
	return fmt.Sprintf(
		"Bot: %s\nPersona: %s ↔ %s\nService: %s\nModel: %s\nTemperature: %.2f\nMax tokens: %d\nHistory: %s (%d/%d/%d entries)",
		s.Bot, s.Char.Name, s.User.Name, s.Service, model, s.Temperature, s.MaxTokens, hist, n0, n1, n2), nil
}

func (r *Registry) cmdChar(ctx context.Context, s *session.Session, args []string) (string, error) {
	if len(args) == 0 {
		return "Current character: " + s.Char.Name, nil
	}
	if err := r.deps.Manager.SwitchChar(ctx, s, args[0]); err != nil {
		return "", err
	}
	return "Switched character to " + s.Char.Name + ".", nil
}

func (r *Registry) cmdUser(ctx context.Context, s *session.Session, args []string) (string, error) {
	if len(args) == 0 {
		return "Current user persona: " + s.User.Name, nil
	}
	if err := r.deps.Manager.SwitchUser(ctx, s, args[0]); err != nil {
		return "", err
	}
	return "Switched user persona to " + s.User.Name + ".", nil
}

func (r *Registry) cmdModel(_ context.Context, s *session.Session, args []string) (string, error) {
	if len(args) == 0 {
		return "Usage: /model <name>", nil
	}
	s.Model = args[0]
	return "Model set to " + s.Model + ".", nil
}

func (r *Registry) cmdCurrentModel(_ context.Context, s *session.Session, _ []string) (string, error) {
	if s.Model != "" {
		return "Current model: " + s.Model, nil
	}
	if spec := providers.FindByName(s.Service); spec != nil {
		return "Current model: " + spec.DefaultModel + " (default for " + s.Service + ")", nil
	}
	return "No model configured.", nil
}

func (r *Registry) cmdTemperature(_ context.Context, s *session.Session, args []string) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("Current temperature: %.2f", s.Temperature), nil
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || v < 0 || v > 2 {
		return "Temperature must be a number between 0 and 2.", nil
	}
	s.Temperature = v
	return fmt.Sprintf("Temperature set to %.2f.", v), nil
}

func (r *Registry) cmdMaxTokens(_ context.Context, s *session.Session, args []string) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("Current max tokens: %d", s.MaxTokens), nil
	}
	v, err := strconv.Atoi(args[0])
	if err != nil || v <= 0 {
		return "Max tokens must be a positive integer.", nil
	}
	s.MaxTokens = v
	return fmt.Sprintf("Max tokens set to %d.", v), nil
}

func (r *Registry) cmdService(_ context.Context, s *session.Session, args []string) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("Current service: %s. Known services: %s.",
			s.Service, strings.Join(providers.Names(), ", ")), nil
	}
	name := strings.ToLower(args[0])
	if providers.FindByName(name) == nil {
		return fmt.Sprintf("Unknown service %q. Known services: %s.",
			name, strings.Join(providers.Names(), ", ")), nil
	}
	s.Service = name
	s.Model = "" // fall back to the new service's default model
	return "Service set to " + name + ".", nil
}
