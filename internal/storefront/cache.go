package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheEntry is one cached catalog response.
type CacheEntry struct {
	Body     []byte    `json:"body"`
	ETag     string    `json:"etag,omitempty"`
	StoredAt time.Time `json:"stored_at"`
}

// ResponseCache stores catalog responses by request path. Freshness is
// decided by the caller from StoredAt; backends only keep entries around.
type ResponseCache interface {
	Get(ctx context.Context, key string) (CacheEntry, bool, error)
	Set(ctx context.Context, key string, e CacheEntry) error
	Delete(ctx context.Context, key string) error
}

const defaultMemoryCacheEntries = 1024

// MemoryCache is the in-process ResponseCache.
type MemoryCache struct {
	mu      sync.RWMutex
	max     int
	entries map[string]CacheEntry
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryCacheEntries
	}
	return &MemoryCache{max: maxEntries, entries: make(map[string]CacheEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (CacheEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, e CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		c.evictOldestLocked()
	}
	c.entries[key] = e
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.StoredAt.Before(oldest) {
			oldestKey, oldest, found = k, e.StoredAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// RedisCache shares cached catalog responses between storefront replicas.
type RedisCache struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedisCache keeps entries for retention; they are revalidated long before
// that, the expiry only stops dead keys piling up.
func NewRedisCache(client *redis.Client, prefix string, retention time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, retention: retention}
}

func (c *RedisCache) Get(ctx context.Context, key string) (CacheEntry, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("cache get: %w", err)
	}

	var e CacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return CacheEntry{}, false, fmt.Errorf("cache unmarshal: %w", err)
	}
	return e, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, e CacheEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.retention).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
