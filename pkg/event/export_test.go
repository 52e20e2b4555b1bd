package event

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// WriterFunc adapts a function to the writer used by KafkaPublisher.
type WriterFunc func(ctx context.Context, msgs ...kafka.Message) error

func (f WriterFunc) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return f(ctx, msgs...)
}

func (WriterFunc) Close() error { return nil }

func NewKafkaPublisherWithWriter(w WriterFunc) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}
