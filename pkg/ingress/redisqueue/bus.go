// Package redisqueue implements ingress.Bus over a Redis list, using BLPOP
// as a lightweight queue for operators without Kafka or RabbitMQ.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beamline-run/beamline/pkg/domain"
)

// Config names the Redis address and the two list keys a Bus moves
// messages through.
type Config struct {
	Addr         string
	RequestKey   string
	ResultKey    string
	PollInterval time.Duration
}

// Bus is the Redis-list ingress.Bus implementation.
type Bus struct {
	client *redis.Client
	cfg    Config
}

// New connects to a Redis instance at cfg.Addr.
func New(cfg Config) *Bus {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})

	return &Bus{client: client, cfg: cfg}
}

// Publish marshals result to JSON and RPUSHes it onto the result list.
func (b *Bus) Publish(ctx context.Context, result domain.ExecResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redisqueue: marshal result: %w", err)
	}

	return b.client.RPush(ctx, b.cfg.ResultKey, payload).Err()
}

// Subscribe blocks on BLPOP against the request list until ctx is
// cancelled, invoking handler per popped envelope.
func (b *Bus) Subscribe(ctx context.Context, handler func(context.Context, domain.Envelope) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		result, err := b.client.BLPop(ctx, b.cfg.PollInterval, b.cfg.RequestKey).Result()
		if err == redis.Nil {
			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("redisqueue: blpop: %w", err)
		}

		// result[0] is the key name, result[1] is the popped payload.
		var env domain.Envelope
		if err := json.Unmarshal([]byte(result[1]), &env); err != nil {
			continue
		}

		if err := handler(ctx, env); err != nil {
			continue
		}
	}
}

// Close releases the Redis client's connection pool.
func (b *Bus) Close() error {
	return b.client.Close()
}
