// Package kafka implements ingress.Bus over Kafka via watermill-kafka,
// backed by IBM/sarama.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/beamline-run/beamline/pkg/domain"
)

// Config names the brokers and topics a Kafka-backed Bus connects to.
type Config struct {
	Brokers       []string
	RequestTopic  string
	ResultTopic   string
	ConsumerGroup string
}

// Bus is the Kafka ingress.Bus implementation.
type Bus struct {
	publisher  *wkafka.Publisher
	subscriber *wkafka.Subscriber
	cfg        Config
}

// New connects a watermill Kafka publisher and subscriber using sarama's
// default consumer-group config.
func New(cfg Config) (*Bus, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Version = sarama.V2_8_0_0
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Producer.Return.Successes = true

	logger := watermill.NewStdLogger(false, false)

	publisher, err := wkafka.NewPublisher(wkafka.PublisherConfig{
		Brokers:               cfg.Brokers,
		Marshaler:             wkafka.DefaultMarshaler{},
		OverwriteSaramaConfig: saramaCfg,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("kafka: new publisher: %w", err)
	}

	subscriber, err := wkafka.NewSubscriber(wkafka.SubscriberConfig{
		Brokers:               cfg.Brokers,
		Unmarshaler:           wkafka.DefaultMarshaler{},
		ConsumerGroup:         cfg.ConsumerGroup,
		OverwriteSaramaConfig: saramaCfg,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("kafka: new subscriber: %w", err)
	}

	return &Bus{publisher: publisher, subscriber: subscriber, cfg: cfg}, nil
}

// Publish marshals result to JSON and publishes it to the result topic.
func (b *Bus) Publish(ctx context.Context, result domain.ExecResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("kafka: marshal result: %w", err)
	}

	return b.publisher.Publish(b.cfg.ResultTopic, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe consumes the request topic until ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, handler func(context.Context, domain.Envelope) error) error {
	messages, err := b.subscriber.Subscribe(ctx, b.cfg.RequestTopic)
	if err != nil {
		return fmt.Errorf("kafka: subscribe: %w", err)
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

// Close releases the publisher and subscriber connections.
func (b *Bus) Close() error {
	pubErr := b.publisher.Close()
	subErr := b.subscriber.Close()

	if pubErr != nil {
		return pubErr
	}

	return subErr
}
