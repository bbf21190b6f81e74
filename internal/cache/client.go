// Package cache provides the cross-process availability report cache backed
// by Redis. The in-process schedule cache absorbs hot repeats; this layer
// lets multiple instances share computed reports between reservation writes.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// KeyValueStore is the minimal key-value surface the report store needs. The
// concrete implementation wraps a Redis client; tests substitute an in-memory
// one.
type KeyValueStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// RedisStore adapts a go-redis client to the KeyValueStore interface.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already configured Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Set stores a value with the given TTL; a zero TTL keeps the key forever.
func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value. A missing key is reported as a miss, not an error.
func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Del removes a key. Deleting a missing key is not an error.
func (r *RedisStore) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Ping verifies connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
