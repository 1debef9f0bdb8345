package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
)

func TestLRUCache(t *testing.T) {
	ctx := context.Background()
	tenantID := "shop-001"
	c := NewLRUCache(100)

	set := func(t *testing.T, tenant, key, value string, ttl time.Duration) {
		t.Helper()
		if err := c.Set(ctx, tenant, key, []byte(value), ttl); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}
	get := func(t *testing.T, tenant, key string) []byte {
		t.Helper()
		val, err := c.Get(ctx, tenant, key)
		if err != nil {
			t.Fatalf("Get %s failed: %v", key, err)
		}
		return val
	}

	t.Run("SetAndGet", func(t *testing.T) {
		set(t, tenantID, "rules:active", `["roas-guard-001"]`, time.Minute)

		if got := get(t, tenantID, "rules:active"); string(got) != `["roas-guard-001"]` {
			t.Errorf("unexpected value: %s", got)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		if got := get(t, tenantID, "rules:missing"); got != nil {
			t.Errorf("expected nil on miss, got %s", got)
		}
	})

	t.Run("UpdateExistingKey", func(t *testing.T) {
		set(t, tenantID, "rules:count", "3", time.Minute)
		set(t, tenantID, "rules:count", "4", time.Minute)

		if got := get(t, tenantID, "rules:count"); string(got) != "4" {
			t.Errorf("expected updated value 4, got %s", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		set(t, tenantID, "rules:stale", "x", time.Minute)

		if err := c.Delete(ctx, tenantID, "rules:stale"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if got := get(t, tenantID, "rules:stale"); got != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		set(t, tenantID, "rules:ephemeral", "x", 10*time.Millisecond)

		if got := get(t, tenantID, "rules:ephemeral"); got == nil {
			t.Error("expected value before expiration")
		}

		time.Sleep(20 * time.Millisecond)

		if got := get(t, tenantID, "rules:ephemeral"); got != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		small := NewLRUCache(3)

		for _, key := range []string{"a", "b", "c"} {
			small.Set(ctx, tenantID, key, []byte(key), time.Minute)
		}

		// Touch "a" so "b" is the eviction candidate, then overflow.
		small.Get(ctx, tenantID, "a")
		small.Set(ctx, tenantID, "d", []byte("d"), time.Minute)

		if val, _ := small.Get(ctx, tenantID, "b"); val != nil {
			t.Error("expected b to be evicted")
		}
		if val, _ := small.Get(ctx, tenantID, "a"); val == nil {
			t.Error("expected a to survive")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		set(t, "shop-001", "plan", "community", time.Minute)
		set(t, "shop-002", "plan", "pro", time.Minute)

		if got := get(t, "shop-001", "plan"); string(got) != "community" {
			t.Errorf("shop-001: unexpected value %s", got)
		}
		if got := get(t, "shop-002", "plan"); string(got) != "pro" {
			t.Errorf("shop-002: unexpected value %s", got)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if err := c.Set(ctx, "", "key", []byte("x"), time.Minute); err == nil {
			t.Error("expected Set error for empty tenantID")
		}
		if _, err := c.Get(ctx, "", "key"); err == nil {
			t.Error("expected Get error for empty tenantID")
		}
	})

	t.Run("MetricsCache", func(t *testing.T) {
		m := &domain.ProfitMetrics{
			MER:      3.0,
			MetaROAS: 3.0,
			CAC:      20,
			AOV:      30,
			LTV:      45,
			LTVToCAC: 2.25,
		}

		if err := c.SetMetrics(ctx, tenantID, m, time.Minute); err != nil {
			t.Fatalf("SetMetrics failed: %v", err)
		}

		got, err := c.GetMetrics(ctx, tenantID)
		if err != nil {
			t.Fatalf("GetMetrics failed: %v", err)
		}
		if got.MetaROAS != m.MetaROAS {
			t.Errorf("expected MetaROAS %.2f, got %.2f", m.MetaROAS, got.MetaROAS)
		}
		if got.LTVToCAC != m.LTVToCAC {
			t.Errorf("expected LTVToCAC %.2f, got %.2f", m.LTVToCAC, got.LTVToCAC)
		}
	})

	t.Run("MetricsCacheMiss", func(t *testing.T) {
		got, err := c.GetMetrics(ctx, "shop-without-metrics")
		if err != nil {
			t.Fatalf("GetMetrics failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil on metrics miss, got %+v", got)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		counted := NewLRUCache(50)
		counted.Set(ctx, tenantID, "k1", []byte("v1"), time.Minute)
		counted.Set(ctx, tenantID, "k2", []byte("v2"), time.Minute)

		size, capacity := counted.Stats()
		if size != 2 {
			t.Errorf("expected size 2, got %d", size)
		}
		if capacity != 50 {
			t.Errorf("expected capacity 50, got %d", capacity)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := c.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		closing := NewLRUCache(10)
		closing.Set(ctx, tenantID, "k", []byte("v"), time.Minute)

		if err := closing.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
		if val, _ := closing.Get(ctx, tenantID, "k"); val != nil {
			t.Error("expected cache to be emptied by Close")
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		c, err := New(domain.CacheConfig{
			Type:         "memory",
			LocalMaxSize: 100,
		})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer c.Close()

		if _, ok := c.(*LRUCache); !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
