// Package amqp implements ingress.Bus directly over RabbitMQ via
// rabbitmq/amqp091-go — no watermill wrapper, since a direct two-queue model
// is a better fit than watermill's pub/sub abstraction for this bus's simple
// request/result shape.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/beamline-run/beamline/pkg/domain"
)

// Config names the connection URL and the two queues a Bus moves messages
// through.
type Config struct {
	URL          string
	RequestQueue string
	ResultQueue  string
}

// Bus is the direct RabbitMQ ingress.Bus implementation.
type Bus struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     Config
}

// New dials cfg.URL and declares both queues durable.
func New(cfg Config) (*Bus, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}

	for _, name := range []string{cfg.RequestQueue, cfg.ResultQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()

			return nil, fmt.Errorf("amqp: declare queue %s: %w", name, err)
		}
	}

	return &Bus{conn: conn, channel: ch, cfg: cfg}, nil
}

// Publish marshals result to JSON and publishes it to the result queue.
func (b *Bus) Publish(ctx context.Context, result domain.ExecResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("amqp: marshal result: %w", err)
	}

	return b.channel.PublishWithContext(ctx, "", b.cfg.ResultQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
	})
}

// Subscribe consumes the request queue until ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, handler func(context.Context, domain.Envelope) error) error {
	deliveries, err := b.channel.ConsumeWithContext(ctx, b.cfg.RequestQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp: consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}

			var env domain.Envelope
			if err := json.Unmarshal(delivery.Body, &env); err != nil {
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, env); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

// Close closes the channel and connection.
func (b *Bus) Close() error {
	chanErr := b.channel.Close()
	connErr := b.conn.Close()

	if chanErr != nil {
		return chanErr
	}

	return connErr
}
