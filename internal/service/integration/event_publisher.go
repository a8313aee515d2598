package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/config"
	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

type EventPublisher interface {
	PublishSubmissionDeleted(ctx context.Context, event models.SubmissionDeletedEvent) error
	PublishBackfillCompleted(ctx context.Context, event models.BackfillCompletedEvent) error
	Close() error
}

type rabbitMQPublisher struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	exchange    string
	deletedKey  string
	backfillKey string
	logger      zerolog.Logger

	mu sync.Mutex
}

func NewRabbitMQPublisher(cfg config.RabbitMQConfig, logger zerolog.Logger) (EventPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Info().
		Str("exchange", cfg.Exchange).
		Msg("Connected to RabbitMQ")

	return &rabbitMQPublisher{
		conn:        conn,
		channel:     channel,
		exchange:    cfg.Exchange,
		deletedKey:  cfg.DeletedRoutingKey,
		backfillKey: cfg.BackfillRoutingKey,
		logger:      logger,
	}, nil
}

func (p *rabbitMQPublisher) PublishSubmissionDeleted(ctx context.Context, event models.SubmissionDeletedEvent) error {
	return p.publish(ctx, p.deletedKey, event)
}

func (p *rabbitMQPublisher) PublishBackfillCompleted(ctx context.Context, event models.BackfillCompletedEvent) error {
	return p.publish(ctx, p.backfillKey, event)
}

func (p *rabbitMQPublisher) publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		publishCtx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.logger.Debug().
		Str("exchange", p.exchange).
		Str("routing_key", routingKey).
		Int("body_size", len(body)).
		Msg("Event published")

	return nil
}

func (p *rabbitMQPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	return nil
}

type noopPublisher struct{}

// NewNoopPublisher is used when event fan-out is disabled.
func NewNoopPublisher() EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishSubmissionDeleted(context.Context, models.SubmissionDeletedEvent) error {
	return nil
}

func (noopPublisher) PublishBackfillCompleted(context.Context, models.BackfillCompletedEvent) error {
	return nil
}

func (noopPublisher) Close() error {
	return nil
}
