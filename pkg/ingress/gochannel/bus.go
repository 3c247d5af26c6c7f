// Package gochannel implements ingress.Bus over watermill's in-memory
// pub/sub, for tests and local development where no external broker is
// available.
package gochannel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wgochannel "github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/beamline-run/beamline/pkg/domain"
)

const (
	requestTopic = "beamline.steps.requests"
	resultTopic  = "beamline.steps.results"
)

// Bus is the in-memory ingress.Bus implementation.
type Bus struct {
	pubsub *wgochannel.GoChannel
}

// New builds an in-memory bus backed by watermill's gochannel pub/sub.
func New() *Bus {
	pubsub := wgochannel.NewGoChannel(wgochannel.Config{}, watermill.NewStdLogger(false, false))

	return &Bus{pubsub: pubsub}
}

// Publish marshals result to JSON and publishes it on the results topic.
func (b *Bus) Publish(ctx context.Context, result domain.ExecResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("gochannel: marshal result: %w", err)
	}

	return b.pubsub.Publish(resultTopic, message.NewMessage(watermill.NewUUID(), payload))
}

// PublishRequest is a test/bootstrap helper: it injects an envelope as if
// it had arrived over the wire, for exercising Subscribe without a real
// producer.
func (b *Bus) PublishRequest(env domain.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("gochannel: marshal envelope: %w", err)
	}

	return b.pubsub.Publish(requestTopic, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe consumes the request topic, invoking handler per envelope.
func (b *Bus) Subscribe(ctx context.Context, handler func(context.Context, domain.Envelope) error) error {
	messages, err := b.pubsub.Subscribe(ctx, requestTopic)
	if err != nil {
		return fmt.Errorf("gochannel: subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var env domain.Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				msg.Nack()
				continue
			}

			if err := handler(ctx, env); err != nil {
				msg.Nack()
				continue
			}

			msg.Ack()
		}
	}
}

// Close releases the in-memory pub/sub.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
