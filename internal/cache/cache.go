// Package cache stores validation reports keyed by the format and checksum
// of the document they were produced from.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omnera-dev/omnera/model"
)

// ResultCache provides report lookup by a document cache key.
type ResultCache interface {
	// Get returns the cached report for key, if any.
	Get(ctx context.Context, key string) (report *model.Report, found bool, err error)

	// Put stores a report for key.
	Put(ctx context.Context, key string, report *model.Report) error
}

// --- MemoryCache ---

// MemoryCache is an in-memory ResultCache with TTL and a bound on the number
// of entries. When full, the entry closest to expiry is evicted.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type memEntry struct {
	report    *model.Report
	expiresAt time.Time
}

// NewMemoryCache creates a memory cache. A non-positive maxEntries means
// unbounded.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]*memEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns a cached report that has not expired.
func (c *MemoryCache) Get(_ context.Context, key string) (*model.Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.report, true, nil
}

// Put stores a report, evicting expired entries first and then the oldest
// one if the cache is full.
func (c *MemoryCache) Put(_ context.Context, key string, report *model.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evict(now)
	}
	c.entries[key] = &memEntry{report: report, expiresAt: now.Add(c.ttl)}
	return nil
}

func (c *MemoryCache) evict(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = k, e.expiresAt
		}
	}
	if len(c.entries) >= c.maxEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of entries, including expired ones. For testing.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// --- RedisCache ---

// RedisCache is a Redis-backed ResultCache. Reports are stored as JSON under
// "omnera:report:{key}".
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get looks up a report in Redis.
func (c *RedisCache) Get(ctx context.Context, key string) (*model.Report, bool, error) {
	rk := FormatKey(key)
	raw, err := c.client.Get(ctx, rk).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", rk, err)
	}

	var report model.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false, fmt.Errorf("unmarshal report %q: %w", rk, err)
	}
	return &report, true, nil
}

// Put stores a report in Redis with the cache TTL.
func (c *RedisCache) Put(ctx context.Context, key string, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	rk := FormatKey(key)
	if err := c.client.Set(ctx, rk, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", rk, err)
	}
	return nil
}

// HealthCheck pings Redis.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// FormatKey builds the Redis key of a report.
func FormatKey(key string) string {
	return "omnera:report:" + key
}
