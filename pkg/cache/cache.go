// Package cache is a small JSON-over-Redis read cache.
//
// A nil *Cache is valid and behaves as an always-empty cache, so callers do
// not need to branch on whether REDIS_ADDR was configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/kachra/pkg/logger"
	"github.com/shashiranjanraj/kachra/pkg/metrics"
)

type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, ttl time.Duration) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", addr, err)
	}
	return New(rdb, "kachra:", ttl), nil
}

// New wraps an existing client. Keys are stored as prefix+key.
func New(rdb *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Get unmarshals the cached value into dest and reports a hit. Redis errors
// and undecodable entries count as misses.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithCtx(ctx).Warn("cache get failed", "key", key, "error", err)
		}
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true
}

// Set stores value under key. ttl <= 0 uses the cache default.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	return c.rdb.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Version reads the generation counter stored under key. Unset or
// unreadable counters are 0.
func (c *Cache) Version(ctx context.Context, key string) int64 {
	if c == nil {
		return 0
	}
	n, err := c.rdb.Get(ctx, c.prefix+key).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.WithCtx(ctx).Warn("cache version read failed", "key", key, "error", err)
	}
	return n
}

// Bump advances the generation counter under key. Entries keyed by an older
// generation are never read again and expire with their TTL.
func (c *Cache) Bump(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.rdb.Incr(ctx, c.prefix+key).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
