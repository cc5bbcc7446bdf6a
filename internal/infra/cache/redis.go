package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/metrics"
)

const tagPrefix = "tag:"

// RedisCache реализует domain.Cache через Redis. Теги хранятся как множества ключей.
type RedisCache struct {
	client *redis.Client
}

var _ domain.Cache = (*RedisCache)(nil)

// NewRedis создаёт кэш.
func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get возвращает значение.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "get", "cache", start, nil)
		return nil, domain.ErrCacheMiss
	}
	metrics.ObserveNetworkRequest("redis", "get", "cache", start, err)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set задаёт значение и привязывает ключ к тегам.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	start := time.Now()
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, tagPrefix+tag, key)
			if ttl > 0 {
				pipe.Expire(ctx, tagPrefix+tag, ttl)
			}
		}
		return nil
	})
	metrics.ObserveNetworkRequest("redis", "set", "cache", start, err)
	return err
}

// InvalidateTag удаляет все ключи, помеченные тегом.
func (c *RedisCache) InvalidateTag(ctx context.Context, tag string) error {
	start := time.Now()
	keys, err := c.client.SMembers(ctx, tagPrefix+tag).Result()
	if err != nil {
		metrics.ObserveNetworkRequest("redis", "invalidate", "cache", start, err)
		return err
	}
	keys = append(keys, tagPrefix+tag)
	err = c.client.Del(ctx, keys...).Err()
	metrics.ObserveNetworkRequest("redis", "invalidate", "cache", start, err)
	return err
}
