package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/metrics"
)

// AMQPPublisher публикует доменные события в topic exchange RabbitMQ.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

var _ domain.EventPublisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher подключается к брокеру и объявляет exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}
	if exchange == "" {
		return nil, errors.New("exchange name is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish отправляет событие с routing key, равным типу события.
func (p *AMQPPublisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	start := time.Now()
	err = p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", p.exchange, start, err)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close закрывает канал и соединение.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.channel.Close(), p.conn.Close())
}
