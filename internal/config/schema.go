// Package config defines halcyon's configuration schema and loader.
// The config file lives at ~/.halcyon/config.json; JSON keys use camelCase.
package config

import (
	"os"
	"path/filepath"

	"github.com/halcyonchat/halcyon/internal/config/channel"
	"github.com/halcyonchat/halcyon/internal/schema"
)

// ServiceConfig holds credentials for one LLM service.
type ServiceConfig struct {
	APIKey  string `json:"apiKey"`
	APIBase string `json:"apiBase,omitempty"`
	Model   string `json:"model,omitempty"`
}

// MemoryConfig is the serialisable form of schema.MemoryParams.
// Zero values mean "inherit" (from the defaults, or for per-bot overrides
// from the global memory section).
type MemoryConfig struct {
	N0               int   `json:"n0,omitempty"`
	N1               int   `json:"n1,omitempty"`
	K                int   `json:"k,omitempty"`
	T0Cap            int   `json:"t0Cap,omitempty"`
	T1Cap            int   `json:"t1Cap,omitempty"`
	T2Cap            int   `json:"t2Cap,omitempty"`
	MaxKeywords      int   `json:"maxKeywords,omitempty"`
	MaxMegaSummaries int   `json:"maxMegaSummaries,omitempty"`
	FlushEvery       int   `json:"flushEvery,omitempty"`
	RotateBytes      int64 `json:"rotateBytes,omitempty"`
}

// overlay applies the non-zero fields of m on top of base.
func (m MemoryConfig) overlay(base schema.MemoryParams) schema.MemoryParams {
	if m.N0 > 0 {
		base.N0 = m.N0
	}
	if m.N1 > 0 {
		base.N1 = m.N1
	}
	if m.K > 0 {
		base.K = m.K
	}
	if m.T0Cap > 0 {
		base.T0Cap = m.T0Cap
	}
	if m.T1Cap > 0 {
		base.T1Cap = m.T1Cap
	}
	if m.T2Cap > 0 {
		base.T2Cap = m.T2Cap
	}
	if m.MaxKeywords > 0 {
		base.MaxKeywords = m.MaxKeywords
	}
	if m.MaxMegaSummaries > 0 {
		base.MaxMegaSummaries = m.MaxMegaSummaries
	}
	if m.FlushEvery > 0 {
		base.FlushEvery = m.FlushEvery
	}
	if m.RotateBytes > 0 {
		base.RotateBytes = m.RotateBytes
	}
	return base
}

// BotConfig describes one bot: its persona pair, its LLM defaults, and
// optional memory overrides.
type BotConfig struct {
	Char           string        `json:"char"`
	User           string        `json:"user"`
	Service        string        `json:"service,omitempty"`
	Model          string        `json:"model,omitempty"`
	Temperature    *float64      `json:"temperature,omitempty"`
	MaxTokens      int           `json:"maxTokens,omitempty"`
	HistoryEnabled bool          `json:"historyEnabled"`
	Memory         *MemoryConfig `json:"memory,omitempty"`
}

// Defaults holds the bot-independent LLM defaults.
type Defaults struct {
	Service     string  `json:"service"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// ChannelsConfig enables and configures the chat platforms.
type ChannelsConfig struct {
	Telegram channel.TelegramConfig `json:"telegram"`
	Slack    channel.SlackConfig    `json:"slack"`
}

// Config is the root configuration document.
type Config struct {
	DataDir    string                   `json:"dataDir,omitempty"`
	DefaultBot string                   `json:"defaultBot"`
	Defaults   Defaults                 `json:"defaults"`
	Services   map[string]ServiceConfig `json:"services"`
	Bots       map[string]BotConfig     `json:"bots"`
	Memory     MemoryConfig             `json:"memory"`
	Channels   ChannelsConfig           `json:"channels"`

	// FlushScheduleMin is the periodic-flush interval in minutes; 0
	// disables the timer (count-based flushing still applies).
	FlushScheduleMin int `json:"flushScheduleMin"`
}

// DefaultConfig returns the configuration halcyon starts from when no file
// exists yet.
func DefaultConfig() Config {
	return Config{
		DefaultBot: "halcyon",
		Defaults: Defaults{
			Service:     "groq",
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Services: map[string]ServiceConfig{},
		Bots: map[string]BotConfig{
			"halcyon": {Char: "halcyon", User: "default", HistoryEnabled: true},
		},
		FlushScheduleMin: 10,
		Channels: ChannelsConfig{
			Telegram: channel.DefaultTelegramConfig(),
			Slack:    channel.DefaultSlackConfig(),
		},
	}
}

// MemoryParamsFor resolves the effective tier parameters for a bot:
// built-in defaults, overlaid with the global memory section, overlaid
// with the bot's own override block.
func (c *Config) MemoryParamsFor(bot string) schema.MemoryParams {
	params := c.Memory.overlay(schema.DefaultMemoryParams())
	if bc, ok := c.Bots[bot]; ok && bc.Memory != nil {
		params = bc.Memory.overlay(params)
	}
	return params
}

// Bot returns the configuration for the named bot, falling back to an
// empty definition so lookups never panic on unknown names.
func (c *Config) Bot(name string) BotConfig {
	if bc, ok := c.Bots[name]; ok {
		return bc
	}
	return BotConfig{Char: name, User: "default", HistoryEnabled: true}
}

// ServiceFor resolves the service a bot talks to.
func (c *Config) ServiceFor(bot string) string {
	if bc := c.Bot(bot); bc.Service != "" {
		return bc.Service
	}
	return c.Defaults.Service
}

// DataPath expands the data directory, defaulting to ~/.halcyon.
func (c *Config) DataPath() string {
	dir := c.DataDir
	if dir == "" {
		dir = "~/.halcyon"
	}
	return expandHome(dir)
}

// HistoriesDir is where the history store keeps its per-session files.
func (c *Config) HistoriesDir() string {
	return filepath.Join(c.DataPath(), "histories")
}

// PersonasDir is where persona cards (chars/, users/) live.
func (c *Config) PersonasDir() string {
	return filepath.Join(c.DataPath(), "personas")
}

func expandHome(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
