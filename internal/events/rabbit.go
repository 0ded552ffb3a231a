package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// RabbitPublisher publishes order events to a topic exchange.
type RabbitPublisher struct {
	pool     *ChannelPool
	exchange string
	logger   zerolog.Logger
}

// NewRabbitPublisher creates a publisher writing to exchange through pool.
func NewRabbitPublisher(pool *ChannelPool, exchange string, logger zerolog.Logger) *RabbitPublisher {
	return &RabbitPublisher{
		pool:     pool,
		exchange: exchange,
		logger:   logger.With().Str("component", "order-publisher").Logger(),
	}
}

var _ Publisher = (*RabbitPublisher)(nil)

// Publish sends event as a persistent JSON message.
func (p *RabbitPublisher) Publish(ctx context.Context, event OrderEvent) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ch, err := p.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.pool.Put(ch)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	err = ch.PublishWithContext(ctx,
		p.exchange,
		event.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Timestamp:    event.OccurredAt,
			Type:         string(event.Type),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.logger.Debug().
		Str("routing_key", event.RoutingKey()).
		Str("order_id", event.OrderID.String()).
		Msg("order event published")

	return nil
}

// Close releases the channel pool and its connection.
func (p *RabbitPublisher) Close() error {
	return p.pool.Close()
}
