package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/metrics"
)

// RedisPublisher складывает события в Redis list; потребитель читает их через BRPOP.
type RedisPublisher struct {
	client *redis.Client
	key    string
}

var _ domain.EventPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher создаёт очередь событий по указанному ключу.
func NewRedisPublisher(client *redis.Client, key string) *RedisPublisher {
	return &RedisPublisher{client: client, key: key}
}

// Publish публикует событие в очередь.
func (q *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}

// NopPublisher отбрасывает события, когда брокер не настроен.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event) error { return nil }
