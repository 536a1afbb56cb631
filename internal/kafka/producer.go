// Package kafka publishes accepted events to a broker topic for downstream
// consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"news-impact-alerts/internal/schema"
)

// Options describe the broker connection.
type Options struct {
	Brokers []string
	Topic   string
}

// Producer publishes event payloads to a Kafka topic, keyed by event ID so
// replays of the same event land in the same partition.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewProducer connects a synchronous producer to the brokers.
func NewProducer(opts Options, logger zerolog.Logger) (*Producer, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if opts.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(opts.Brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		topic:    opts.Topic,
		logger:   logger.With().Str("component", "kafka_producer").Logger(),
	}, nil
}

// Publish sends one event to the topic.
func (p *Producer) Publish(_ context.Context, event schema.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for kafka: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.EventID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish event %s: %w", event.EventID, err)
	}

	p.logger.Debug().
		Str("event_id", event.EventID).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("event published")
	return nil
}

// Close shuts down the underlying producer.
func (p *Producer) Close() error {
	return p.producer.Close()
}
