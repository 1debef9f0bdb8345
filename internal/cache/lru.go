// Package cache provides caching implementations for AdBrain.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
)

// metricsKey is the per-tenant key under which the latest computed
// metrics snapshot is cached.
const metricsKey = "metrics:latest"

// LRUCache is an in-process cache with per-entry TTL and
// least-recently-used eviction. It serves the Community tier and is
// the L1 of the two-phase cache.
type LRUCache struct {
	capacity int

	mu    sync.Mutex
	lru   *list.List
	index map[string]*list.Element
}

type lruItem struct {
	tenantKey string
	value     []byte
	expiresAt time.Time
}

// NewLRUCache creates an LRU cache holding at most capacity entries;
// values <= 0 fall back to 10000.
func NewLRUCache(capacity int) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LRUCache{
		capacity: capacity,
		lru:      list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Get returns the cached value, or nil on a miss. Expired entries are
// evicted on read.
func (c *LRUCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[tenantKey(tenantID, key)]
	if !ok {
		return nil, nil
	}

	item := elem.Value.(*lruItem)
	if time.Now().After(item.expiresAt) {
		c.evict(elem)
		return nil, nil
	}

	c.lru.MoveToFront(elem)
	return item.value, nil
}

// Set stores a value with the given TTL, evicting the least recently
// used entries when over capacity.
func (c *LRUCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	tk := tenantKey(tenantID, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[tk]; ok {
		c.lru.MoveToFront(elem)
		item := elem.Value.(*lruItem)
		item.value = value
		item.expiresAt = time.Now().Add(ttl)
		return nil
	}

	c.index[tk] = c.lru.PushFront(&lruItem{
		tenantKey: tk,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})

	for c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.evict(oldest)
		}
	}

	return nil
}

// Delete removes an entry. Deleting a missing key is not an error.
func (c *LRUCache) Delete(ctx context.Context, tenantID string, key string) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[tenantKey(tenantID, key)]; ok {
		c.evict(elem)
	}
	return nil
}

// GetMetrics retrieves the cached computed metrics snapshot.
func (c *LRUCache) GetMetrics(ctx context.Context, tenantID string) (*domain.ProfitMetrics, error) {
	data, err := c.Get(ctx, tenantID, metricsKey)
	if err != nil || data == nil {
		return nil, err
	}

	var m domain.ProfitMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetMetrics caches the latest computed metrics snapshot.
func (c *LRUCache) SetMetrics(ctx context.Context, tenantID string, m *domain.ProfitMetrics, ttl time.Duration) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, metricsKey, data, ttl)
}

// Ping always succeeds for the in-process cache.
func (c *LRUCache) Ping(ctx context.Context) error {
	return nil
}

// Close drops all entries.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru = list.New()
	c.index = make(map[string]*list.Element)
	return nil
}

// Stats reports the current entry count and configured capacity.
func (c *LRUCache) Stats() (size int, capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.capacity
}

// evict removes an element. Caller holds the lock.
func (c *LRUCache) evict(elem *list.Element) {
	c.lru.Remove(elem)
	delete(c.index, elem.Value.(*lruItem).tenantKey)
}

func tenantKey(tenantID, key string) string {
	return tenantID + ":" + key
}
