package channels

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/halcyonchat/halcyon/internal/bus"
	"github.com/halcyonchat/halcyon/internal/config"
	"github.com/halcyonchat/halcyon/internal/schema"
)

// Manager owns all enabled channels and routes outbound messages.
type Manager struct {
	channels map[string]schema.Channel
	b        *bus.MessageBus
}

// NewManager creates a Manager and initialises all enabled channels.
// withCLI attaches the interactive terminal channel; the gateway enables it
// only when running in a terminal.
func NewManager(cfg *config.Config, b *bus.MessageBus, withCLI bool) *Manager {
	m := &Manager{
		channels: make(map[string]schema.Channel),
		b:        b,
	}

	if withCLI {
		cli := NewCLIChannel(b)
		m.channels[cli.Name()] = cli
	}
	if cfg.Channels.Telegram.Enabled {
		ch := NewTelegramChannel(&cfg.Channels.Telegram, b)
		m.channels[ch.Name()] = ch
	}
	if cfg.Channels.Slack.Enabled {
		ch := NewSlackChannel(&cfg.Channels.Slack, b)
		m.channels[ch.Name()] = ch
	}

	for name := range m.channels {
		slog.Info("channel enabled", "name", name)
	}
	return m
}

// EnabledChannels returns the names of all enabled channels, sorted.
func (m *Manager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for n := range m.channels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StartAll runs every channel plus the outbound dispatcher, blocking until
// every channel has exited (normally on ctx cancellation; the CLI channel
// also exits when stdin closes).
func (m *Manager) StartAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	go m.dispatchOutbound(ctx)

	for name, ch := range m.channels {
		name, ch := name, ch
		g.Go(func() error {
			slog.Info("starting channel", "name", name)
			if err := ch.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("channel exited with error", "name", name, "err", err)
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// dispatchOutbound reads from the outbound bus and routes each message to
// the channel it came in on.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-m.b.Outbound:
			ch, ok := m.channels[msg.Channel()]
			if !ok {
				slog.Debug("unknown channel for outbound message", "channel", msg.Channel())
				continue
			}
			if err := ch.Send(ctx, msg); err != nil {
				slog.Error("send error", "channel", msg.Channel(), "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
