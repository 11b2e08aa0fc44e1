// Package cache is a thin JSON wrapper over Redis used for read-mostly
// values (wallet balances). It is strictly best-effort: a nil *Cache is a
// valid no-op instance, and callers are expected to treat errors as cache
// misses rather than failures.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"refwallet/internal/config"
)

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis per cfg. An empty Addr returns a nil cache, which
// disables caching without any call-site branching.
func New(ctx context.Context, cfg config.RedisConfig) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{rdb: rdb, ttl: cfg.TTL}, nil
}

// BalanceKey is the cache key for a user's wallet balance.
func BalanceKey(userID uint64) string {
	return "wallet:balance:" + strconv.FormatUint(userID, 10)
}

// Get loads key into dest. Returns false on a miss (including nil cache).
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}

	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %q: %w", key, err)
	}

	err = json.Unmarshal([]byte(val), dest)
	if err != nil {
		return false, fmt.Errorf("decode cached %q: %w", key, err)
	}

	return true, nil
}

// Set stores value under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	err = c.rdb.Set(ctx, key, b, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}

	return nil
}

// Delete removes keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}

	err := c.rdb.Del(ctx, keys...).Err()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}

	return c.rdb.Close()
}
