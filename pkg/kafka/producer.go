package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/config"
)

const contentTypeJSON = "application/json"

// Event is one announcement. Key picks the partition, so every event about
// the same artifact stays in order. Value is sent as JSON.
type Event struct {
	Key   string
	Value any
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON events to one topic and waits for the leader to
// acknowledge each write.
type Producer struct {
	writer messageWriter
	topic  string
	source string
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, topic, cfg.ConsumerGroup)
}

func newProducer(w messageWriter, topic, source string) *Producer {
	return &Producer{
		writer: w,
		topic:  topic,
		source: source,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes event synchronously.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event.Key, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte(contentTypeJSON)},
			{Key: "source", Value: []byte(p.source)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event", "key", event.Key, "error", err)
		return fmt.Errorf("publishing %s to %s: %w", event.Key, p.topic, err)
	}
	p.logger.Debug("event published", "key", event.Key, "value_size", len(value))
	return nil
}

func (p *Producer) Topic() string {
	return p.topic
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}
