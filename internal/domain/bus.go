package domain

import "context"

// EventBus carries the evaluation pipeline's events between
// components: Go channels in-process for Community, NATS for Pro.
// Every call is tenant-scoped; there is no cross-tenant fan-out.
type EventBus interface {
	// Publish sends a payload to every subscriber of the tenant's topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for the tenant's topic.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Request publishes and waits for a single reply (request-reply).
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)

	// Ping reports whether the bus accepts traffic.
	Ping(ctx context.Context) error

	Close() error
}

// MessageHandler processes one delivered message.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is the envelope every payload travels in.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription is a handle on an active topic subscription.
type Subscription interface {
	// Unsubscribe stops delivery for this subscription.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Community tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names for the evaluation pipeline. The alert topic is
// the notification boundary: downstream dispatchers fan alerts out to
// email/Slack/Discord.
const (
	TopicSnapshotIngested = "adbrain.metrics.ingested"
	TopicRuleTriggered    = "adbrain.rule.triggered"
	TopicAlert            = "adbrain.alert"
	TopicRecommendation   = "adbrain.recommendation"
)
