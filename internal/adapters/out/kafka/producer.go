// Package kafka publishes committed domain events to the message broker
// for downstream consumers (notifications, analytics, the chat service).
package kafka

import (
	"encoding/json"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"

	"github.com/IBM/sarama"
)

// envelope is the wire format for broker messages. Topics carries the
// in-process broadcast topics so consumers can re-fan the event without
// knowing aggregate internals.
type envelope struct {
	Name       string          `json:"name"`
	Topics     []string        `json:"topics"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// SaramaProducer delivers domain events to a single Kafka topic using a
// synchronous producer. Events are keyed by their first broadcast topic so
// per-order ordering survives partitioning.
type SaramaProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewSaramaProducer connects a synchronous producer to the brokers.
func NewSaramaProducer(brokers []string, topic string, logger *slog.Logger) (*SaramaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &SaramaProducer{
		producer: producer,
		topic:    topic,
		logger:   logger.With("component", "kafka_producer"),
	}, nil
}

// Send serializes one domain event and ships it to the broker. Errors are
// returned so the caller can decide whether the event is worth logging or
// retrying; delivery is never transactional with the database.
func (p *SaramaProducer) Send(event kernel.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	body, err := json.Marshal(envelope{
		Name:       event.EventName(),
		Topics:     event.Topics(),
		Payload:    payload,
		OccurredAt: time.Now(),
	})
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(body),
	}
	if topics := event.Topics(); len(topics) > 0 {
		msg.Key = sarama.StringEncoder(topics[0])
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return err
	}

	p.logger.Debug("event shipped",
		"name", event.EventName(), "partition", partition, "offset", offset)

	return nil
}

// Close shuts the underlying producer down.
func (p *SaramaProducer) Close() error {
	return p.producer.Close()
}
