// Package commands implements the slash-command surface shared by every
// channel. A command receives the session it targets and returns the reply
// text; anything not starting with "/" is ordinary conversation and never
// reaches this package.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/halcyonchat/halcyon/internal/session"
)

// Handler executes one command against a session.
type Handler func(ctx context.Context, s *session.Session, args []string) (string, error)

type command struct {
	name    string
	usage   string
	summary string
	run     Handler
}

// Registry maps command names to handlers.
type Registry struct {
	deps Deps
	cmds map[string]command
}

// IsCommand reports whether text should be routed through the registry.
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// Dispatch parses and runs a command line. Unknown commands get a hint
// rather than an error; handler errors are rendered as chat replies so
// channels never have to special-case them.
func (r *Registry) Dispatch(ctx context.Context, s *session.Session, line string) string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return ""
	}
	name := strings.TrimPrefix(strings.ToLower(fields[0]), "/")

	cmd, ok := r.cmds[name]
	if !ok {
		return fmt.Sprintf("Unknown command /%s. Try /help.", name)
	}

	reply, err := cmd.run(ctx, s, fields[1:])
	if err != nil {
		return fmt.Sprintf("⚠️ %s: %v", cmd.name, err)
	}
	return reply
}

func (r *Registry) register(name, usage, summary string, run Handler) {
	r.cmds[name] = command{name: name, usage: usage, summary: summary, run: run}
}

func (r *Registry) helpText() string {
	names := make([]string, 0, len(r.cmds))
	for name := range r.cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, name := range names {
		cmd := r.cmds[name]
		fmt.Fprintf(&b, "  %s — %s\n", cmd.usage, cmd.summary)
	}
	return strings.TrimRight(b.String(), "\n")
}
