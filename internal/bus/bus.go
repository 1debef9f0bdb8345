package bus

import (
	"fmt"

	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
)

// New builds the event bus for the configured tier: "channel"
// (in-process, Community) or "nats" (Pro).
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
