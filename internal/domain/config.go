package domain

import "time"

// Config holds the complete AdBrain configuration.
type Config struct {
	// Tier determines component defaults
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Recommendation composer settings
	Brain BrainConfig `json:"brain"`

	// Rule executor settings
	Executor ExecutorConfig `json:"executor"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// BrainConfig holds LLM settings for the AI-enhanced path. The core
// runtime consumes only LookbackDays; Provider, APIKey, Model, and
// TimeoutSecs are reserved for the dispatcher that injects a concrete
// Completer. An empty APIKey leaves the composer on the rule-based path.
type BrainConfig struct {
	Provider     string `json:"provider"` // "anthropic" or "openai"
	APIKey       string `json:"-"`
	Model        string `json:"model"`
	TimeoutSecs  int    `json:"timeoutSecs"`
	LookbackDays int    `json:"lookbackDays"` // trend window for prompt context
}

// ExecutorConfig holds rule executor settings.
type ExecutorConfig struct {
	TenantIDs   []string      `json:"tenantIds"`
	SnapshotTTL time.Duration `json:"snapshotTtl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./adbrain.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Brain: BrainConfig{
			Provider:     "anthropic",
			TimeoutSecs:  30,
			LookbackDays: 30,
		},
		Executor: ExecutorConfig{
			SnapshotTTL: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "adbrain",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "adbrain",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
