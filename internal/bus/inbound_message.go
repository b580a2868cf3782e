package bus

import "time"

// Channel names used across the bus.
const (
	ChannelTelegram = "telegram"
	ChannelSlack    = "slack"
	ChannelCLI      = "cli"

	SenderIDCLI = "cli"
)

// InboundMessage is a message received from a chat channel.
type InboundMessage struct {
	channel   string    // "telegram", "slack", "cli"
	senderID  string    // user identifier within the channel
	chatID    string    // chat / channel / DM identifier
	content   string    // message text
	timestamp time.Time // when the message was received
	metadata  map[string]any
}

// NewInboundMessage creates an InboundMessage with the timestamp set to now.
func NewInboundMessage(channel, senderID, chatID, content string) InboundMessage {
	return InboundMessage{
		channel:   channel,
		senderID:  senderID,
		chatID:    chatID,
		content:   content,
		timestamp: time.Now(),
	}
}

func (m InboundMessage) Channel() string          { return m.channel }
func (m InboundMessage) SenderID() string         { return m.senderID }
func (m InboundMessage) ChatID() string           { return m.chatID }
func (m InboundMessage) Content() string          { return m.content }
func (m InboundMessage) Timestamp() time.Time     { return m.timestamp }
func (m InboundMessage) Metadata() map[string]any { return m.metadata }

func (m *InboundMessage) SetMetadata(md map[string]any) { m.metadata = md }
