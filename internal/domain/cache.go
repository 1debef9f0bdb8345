package domain

import (
	"context"
	"time"
)

// Cache holds hot per-tenant state, most importantly the latest
// computed metrics snapshot. Community runs a local LRU; Pro runs
// Redis, optionally fronted by the LRU (two-phase).
type Cache interface {
	// Get returns the cached value, or nil, nil on a miss.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetMetrics retrieves the cached computed metrics snapshot.
	GetMetrics(ctx context.Context, tenantID string) (*ProfitMetrics, error)

	// SetMetrics caches the latest computed metrics snapshot.
	SetMetrics(ctx context.Context, tenantID string, m *ProfitMetrics, ttl time.Duration) error

	// Ping reports backend health.
	Ping(ctx context.Context) error

	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EnableTwoPhase fronts Redis with the local LRU.
	EnableTwoPhase bool
}
