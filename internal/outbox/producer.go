package outbox

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Producer delivers feed events to Kafka. Feedboard publishes exactly one
// topic, so the writer is fixed at construction; partitioning hashes the
// message key so a user's entries stay ordered.
type Producer struct {
	topic  string
	writer *kafka.Writer
}

// NewProducer creates a Producer bound to topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		},
	}
}

// WriteMessages writes messages to topic. An outbox row routed to any other
// topic is a wiring bug and is reported instead of silently delivered.
func (p *Producer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	if topic != p.topic {
		return fmt.Errorf("producer is bound to topic %q, got %q", p.topic, topic)
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close releases the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
