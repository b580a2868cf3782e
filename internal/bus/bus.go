// Package bus defines the message types that flow between chat channels and
// the conversation engine.
//
// Channels push InboundMessages; the engine consumes them, processes, and
// pushes OutboundMessages back for the channel manager to route. Both
// directions use buffered channels so senders never block on a slow consumer.
package bus

// MessageBus decouples chat channels from the engine.
type MessageBus struct {
	Inbound  chan InboundMessage  // channels → engine
	Outbound chan OutboundMessage // engine → channels
}

func NewMessageBus(bufSize int) *MessageBus {
	return &MessageBus{
		Inbound:  make(chan InboundMessage, bufSize),
		Outbound: make(chan OutboundMessage, bufSize),
	}
}

func (b *MessageBus) PublishInbound(msg InboundMessage)   { b.Inbound <- msg }
func (b *MessageBus) PublishOutbound(msg OutboundMessage) { b.Outbound <- msg }
