package schema

import (
	"context"

	"github.com/halcyonchat/halcyon/internal/bus"
)

// Channel is one chat platform adapter (telegram, slack, cli).
type Channel interface {
	Name() string

	// Start runs the channel's receive loop until ctx is cancelled.
	Start(ctx context.Context) error

	// Send delivers one outbound message to the platform.
	Send(ctx context.Context, msg bus.OutboundMessage) error
}
