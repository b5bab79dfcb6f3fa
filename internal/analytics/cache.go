package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "analytics:version"

// DefaultCacheTTL bounds how stale a cached series may be.
const DefaultCacheTTL = 5 * time.Minute

// Cache keeps backend series in Redis under versioned keys. Bumping the
// version orphans every key at once; the TTL collects them.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(append([]string{"analytics"}, parts...), ":")
	if !c.enabled() {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

// Bump invalidates every cached series.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// fetchJSON returns the cached value under key or populates it with load.
// Redis failures degrade to a direct load.
func fetchJSON[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	if !c.enabled() || key == "" {
		v, err := load(ctx)
		return v, false, err
	}
	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached T
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, true, nil
		}
	}
	v, err := load(ctx)
	if err != nil {
		return zero, false, err
	}
	if raw, err := json.Marshal(v); err == nil {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return v, false, nil
}
