package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/meetmid/places-gateway/internal/config"
	"github.com/meetmid/places-gateway/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces usage events to a Kafka topic.
// It implements gateway.UsagePublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured usage topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaUsageTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes a usage event and writes it to the usage topic.
func (w *Writer) Publish(ctx context.Context, event domain.UsageEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a UsageEvent into a Kafka message. Messages are
// keyed by category so per-category ordering survives partitioning.
func serializeToMessage(event domain.UsageEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize usage event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Category),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "endpoint", Value: []byte(event.Endpoint)},
			{Key: "status", Value: []byte(event.Status)},
			{Key: "occurred_at", Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}
