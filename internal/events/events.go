// Package events publishes batch lifecycle events.
//
// [Kafka] writes each event as a JSON message keyed by batch id, so every
// event of one batch lands on the same partition. [Log] writes events to
// the structured log and is used when no brokers are configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JonMunkholm/shipbatch/internal/config"
	"github.com/JonMunkholm/shipbatch/internal/core"
	"github.com/JonMunkholm/shipbatch/internal/logging"
)

// Writer is the part of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events to one topic.
type Kafka struct {
	writer Writer
}

var _ core.Publisher = (*Kafka)(nil)

// NewKafka creates a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	return NewKafkaWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	})
}

// NewKafkaWithWriter creates a publisher on an existing writer.
func NewKafkaWithWriter(w Writer) *Kafka {
	return &Kafka{writer: w}
}

// Publish writes ev to the topic.
func (k *Kafka) Publish(ctx context.Context, ev core.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.BatchID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	logging.FromContext(ctx).Debug("event published", "type", ev.Type, "batch_id", ev.BatchID)
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Log writes events to the structured log.
type Log struct{}

var _ core.Publisher = Log{}

// Publish logs ev at info.
func (Log) Publish(ctx context.Context, ev core.Event) error {
	logging.FromContext(ctx).Info("batch event",
		"type", ev.Type,
		"batch_id", ev.BatchID,
		"label_count", ev.LabelCount,
		"total_cost", ev.TotalCost.Format(),
	)
	return nil
}

// Close does nothing.
func (Log) Close() error { return nil }

// Publisher is a core.Publisher that must be closed on shutdown.
type Publisher interface {
	core.Publisher
	Close() error
}

// New selects the Kafka publisher when brokers are configured and the log
// publisher otherwise.
func New(cfg config.EventsConfig) Publisher {
	if len(cfg.Brokers) == 0 {
		slog.Info("event publishing to log", "reason", "no KAFKA_BROKERS")
		return Log{}
	}
	slog.Info("event publishing to kafka", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return NewKafka(cfg.Brokers, cfg.Topic)
}
