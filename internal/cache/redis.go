// Package cache holds the Redis-backed store of derived views (album
// listings, search facets) that the web app renders from. Batch jobs only
// ever invalidate it.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 500

// RedisViews is a view cache living under a key prefix in a Redis database
// that may be shared with the task queue, so it never flushes the database.
type RedisViews struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisViews wraps client. prefix must be non-empty.
func NewRedisViews(client redis.UniversalClient, prefix string) (*RedisViews, error) {
	if prefix == "" {
		return nil, fmt.Errorf("view cache prefix must not be empty")
	}
	return &RedisViews{client: client, prefix: prefix}, nil
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Set stores a rendered view.
func (c *RedisViews) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set view %s: %w", key, err)
	}
	return nil
}

// Get returns a rendered view; ok is false on a miss.
func (c *RedisViews) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("get view %s: %w", key, err)
	}
	return val, true, nil
}

// InvalidateAll deletes every key under the prefix.
func (c *RedisViews) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan views: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("unlink views: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
