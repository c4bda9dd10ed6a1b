package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "moviefinder:cache:"

// RedisCache stores entries as JSON in Redis. Keys expire after ttl so the
// server drops stale entries on its own.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Read(ctx context.Context, key string, maxAge time.Duration) (*Entry, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if maxAge > 0 && time.Since(entry.FetchedAt) > maxAge {
		return &entry, false
	}
	return &entry, true
}

func (r *RedisCache) Write(ctx context.Context, key string, entry *Entry) error {
	entry.FetchedAt = time.Now()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err()
}

func (r *RedisCache) KeyFor(path string, params map[string]string) string {
	return KeyFor(path, params)
}

// Ping checks connectivity so startup can fall back to another backend.
func (r *RedisCache) Ping(ctx context.Context) error {
	if r.client == nil {
		return errors.New("cache: nil redis client")
	}
	return r.client.Ping(ctx).Err()
}
