// Package dependency wires core halcyon services using go.uber.org/dig.
package dependency

import (
	"github.com/halcyonchat/halcyon/internal/bus"
	"github.com/halcyonchat/halcyon/internal/channels"
	"github.com/halcyonchat/halcyon/internal/commands"
	"github.com/halcyonchat/halcyon/internal/compress"
	"github.com/halcyonchat/halcyon/internal/config"
	"github.com/halcyonchat/halcyon/internal/cron"
	"github.com/halcyonchat/halcyon/internal/engine"
	"github.com/halcyonchat/halcyon/internal/history"
	"github.com/halcyonchat/halcyon/internal/persona"
	"github.com/halcyonchat/halcyon/internal/schema"
	"github.com/halcyonchat/halcyon/internal/session"

	"go.uber.org/dig"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	msgBus    *bus.MessageBus
	sessions  *session.Manager
	eng       *engine.Engine
	chanMgr   *channels.Manager
	flushSvc  *cron.Service
	histStore *history.Store
}

func (c *Container) MessageBus() *bus.MessageBus      { return c.msgBus }
func (c *Container) Sessions() *session.Manager       { return c.sessions }
func (c *Container) Engine() *engine.Engine           { return c.eng }
func (c *Container) Channels() *channels.Manager      { return c.chanMgr }
func (c *Container) FlushService() *cron.Service      { return c.flushSvc }
func (c *Container) HistoryStore() *history.Store     { return c.histStore }

// Options tweak the wiring per entry point.
type Options struct {
	// WithCLI attaches the interactive terminal channel.
	WithCLI bool
}

// New builds and wires all core services from cfg.
func New(cfg *config.Config, opts Options) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		newCompressor,
		newHistoryStore,
		newPersonaLoader,
		newSessionManager,
		newCommandRegistry,
		newMessageBus,
		newEngine,
		func(cfg *config.Config, b *bus.MessageBus) *channels.Manager {
			return channels.NewManager(cfg, b, opts.WithCLI)
		},
		newFlushService,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		msgBus *bus.MessageBus,
		sessions *session.Manager,
		eng *engine.Engine,
		chanMgr *channels.Manager,
		flushSvc *cron.Service,
		histStore *history.Store,
	) {
		result = &Container{
			msgBus:    msgBus,
			sessions:  sessions,
			eng:       eng,
			chanMgr:   chanMgr,
			flushSvc:  flushSvc,
			histStore: histStore,
		}
	})
	return result, err
}

func newCompressor() schema.Compressor {
	return compress.NewService()
}

func newHistoryStore(cfg *config.Config) (*history.Store, error) {
	return history.NewStore(cfg.HistoriesDir())
}

func newPersonaLoader(cfg *config.Config) *persona.Loader {
	return persona.NewLoader(cfg.PersonasDir())
}

func newSessionManager(cfg *config.Config, store *history.Store, comp schema.Compressor, personas *persona.Loader) *session.Manager {
	return session.NewManager(cfg, store, comp, personas)
}

func newCommandRegistry(cfg *config.Config, sessions *session.Manager, store *history.Store) *commands.Registry {
	return commands.NewRegistry(commands.Deps{Cfg: cfg, Manager: sessions, Store: store})
}

func newMessageBus() *bus.MessageBus {
	return bus.NewMessageBus(16)
}

func newEngine(cfg *config.Config, b *bus.MessageBus, sessions *session.Manager, cmds *commands.Registry) *engine.Engine {
	return engine.New(cfg, b, sessions, cmds)
}

func newFlushService(cfg *config.Config, sessions *session.Manager) *cron.Service {
	return cron.NewService(sessions, cfg.FlushScheduleMin)
}
