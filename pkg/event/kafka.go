package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shashiranjanraj/kachra/pkg/metrics"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event as JSON to one topic, keyed
// "<event>.<subject>" so every record's events land on one partition.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(e.Name, "error").Inc()
		return fmt.Errorf("event: marshal %s: %w", e.Name, err)
	}
	msg := kafka.Message{
		Key:   []byte(e.Name + "." + e.Subject),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(e.ID)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(e.Name, "error").Inc()
		return fmt.Errorf("event: kafka write %s: %w", e.Name, err)
	}
	metrics.EventsPublished.WithLabelValues(e.Name, "ok").Inc()
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
