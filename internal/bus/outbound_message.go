package bus

// OutboundMessage is a reply routed back to the channel it came from.
type OutboundMessage struct {
	channel  string
	chatID   string
	content  string
	metadata map[string]any
}

func NewOutboundMessage(channel, chatID, content string, metadata map[string]any) OutboundMessage {
	return OutboundMessage{
		channel:  channel,
		chatID:   chatID,
		content:  content,
		metadata: metadata,
	}
}

func (m OutboundMessage) Channel() string          { return m.channel }
func (m OutboundMessage) ChatID() string           { return m.chatID }
func (m OutboundMessage) Content() string          { return m.content }
func (m OutboundMessage) Metadata() map[string]any { return m.metadata }
