// Package events relays order events from the outbox to a message broker.
package events

import (
	"context"
	"fmt"
	"time"

	"shopflow/internal/model"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers outbox messages to their consumers.
type Publisher interface {
	// Publish delivers msgs in order. Either all are delivered or an error is returned.
	Publish(ctx context.Context, msgs []model.OutboxMessage) error

	// Close flushes and releases the publisher.
	Close() error
}

// messageWriter is the part of kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes order events to a Kafka topic keyed by order id, so every
// event of one order lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(writer, topic, logger)
}

func newKafkaPublisher(writer messageWriter, topic string, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		logger: logger.With().Str("component", "kafka-publisher").Str("topic", topic).Logger(),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msgs []model.OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		kafkaMsgs = append(kafkaMsgs, kafka.Message{
			Key:   []byte(msg.Key),
			Value: msg.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(msg.EventID.String())},
				{Key: "event_type", Value: []byte(msg.EventType)},
			},
			Time: msg.CreatedAt,
		})
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsgs...); err != nil {
		p.logger.Error().Err(err).Int("count", len(msgs)).Msg("failed to publish order events")
		return fmt.Errorf("failed to publish order events: %w", err)
	}

	p.logger.Debug().Int("count", len(msgs)).Msg("order events published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes order events to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher that logs every event.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "log-publisher").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, msgs []model.OutboxMessage) error {
	for _, msg := range msgs {
		p.logger.Info().
			Str("event_id", msg.EventID.String()).
			Str("event_type", string(msg.EventType)).
			Str("order_id", msg.Key).
			RawJSON("payload", msg.Payload).
			Msg("order event")
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
