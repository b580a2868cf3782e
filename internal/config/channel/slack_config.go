package channel

// SlackConfig configures the Slack channel (Socket Mode).
type SlackConfig struct {
	Enabled       bool     `json:"enabled"`
	BotToken      string   `json:"botToken"`
	AppToken      string   `json:"appToken"`
	AllowFrom     []string `json:"allowFrom"`
	ReplyInThread bool     `json:"replyInThread"`
	ReactEmoji    string   `json:"reactEmoji"`
}

func DefaultSlackConfig() SlackConfig {
	return SlackConfig{
		ReplyInThread: true,
		ReactEmoji:    "eyes",
		AllowFrom:     []string{},
	}
}
