package domain

import (
	"context"
	"time"
)

// Repository persists snapshots, rules, and execution records. Every
// method is tenant-scoped; an empty tenantID is rejected rather than
// treated as a wildcard.
type Repository interface {
	// Daily metric snapshots, one row per tenant and date.
	SaveSnapshot(ctx context.Context, tenantID string, snap *MetricSnapshot) error
	LatestSnapshot(ctx context.Context, tenantID string) (*MetricSnapshot, error)
	ListSnapshots(ctx context.Context, tenantID string, since time.Time) ([]*MetricSnapshot, error)

	// Tenant-defined automation rules.
	SaveRule(ctx context.Context, tenantID string, rule *Rule) error
	GetRule(ctx context.Context, tenantID string, ruleID string) (*Rule, error)
	ListRules(ctx context.Context, tenantID string) ([]*Rule, error)
	ListActiveRules(ctx context.Context, tenantID string) ([]*Rule, error)
	MarkRuleTriggered(ctx context.Context, tenantID string, ruleID string, at time.Time) error

	// Evaluation audit trail.
	SaveExecution(ctx context.Context, tenantID string, exec *RuleExecution) error
	ListExecutions(ctx context.Context, tenantID string, ruleID string, limit int) ([]*RuleExecution, error)

	// Ping reports backend health.
	Ping(ctx context.Context) error

	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
