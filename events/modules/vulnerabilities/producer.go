package vulnerabilities

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Producer publishes lifecycle events to Kafka.
type Producer struct {
	Writer *kafka.Writer
}

// NewProducer initializes a Kafka writer for lifecycle events. transport may be nil.
func NewProducer(brokers []string, topic string, transport *kafka.Transport) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	if transport != nil {
		w.Transport = transport
	}
	return &Producer{Writer: w}
}

// Publish sends the events in one batch, keyed by vulnerability id so the events of one
// vulnerability stay ordered.
func (p *Producer) Publish(ctx context.Context, events ...LifecycleEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.VulnID),
			Value: payload,
		})
	}
	if err := p.Writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish lifecycle events: %w", err)
	}
	return nil
}

// Close cleans up the Kafka writer
func (p *Producer) Close() error {
	return p.Writer.Close()
}
