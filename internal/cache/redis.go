package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable is returned when the cache is disabled (nil instance).
var ErrCacheUnavailable = errors.New("cache unavailable")

// RedisCache wraps the Redis client with the small set of operations the app
// uses. Every caller treats the cache as best-effort: a nil *RedisCache is
// valid and turns every operation into a no-op.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Key doesn't exist
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Exists(ctx context.Context, key string) bool {
	if c == nil {
		return false
	}
	count, _ := c.client.Exists(ctx, key).Result()
	return count > 0
}

func (c *RedisCache) SetAdd(ctx context.Context, key string, members ...interface{}) error {
	if c == nil {
		return nil
	}
	return c.client.SAdd(ctx, key, members...).Err()
}

func (c *RedisCache) SetRemove(ctx context.Context, key string, members ...interface{}) error {
	if c == nil {
		return nil
	}
	return c.client.SRem(ctx, key, members...).Err()
}

func (c *RedisCache) SetMembers(ctx context.Context, key string) ([]string, error) {
	if c == nil {
		return nil, nil
	}
	return c.client.SMembers(ctx, key).Result()
}

func (c *RedisCache) SetCard(ctx context.Context, key string) (int64, error) {
	if c == nil {
		return 0, nil
	}
	return c.client.SCard(ctx, key).Result()
}

func (c *RedisCache) Ping() error {
	if c == nil {
		return ErrCacheUnavailable
	}
	return c.client.Ping(context.Background()).Err()
}

func (c *RedisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
