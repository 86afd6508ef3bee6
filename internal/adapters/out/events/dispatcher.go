// Package events implements the outbound event publisher: committed domain
// events fan out to in-process subscribers and, when configured, to Kafka.
package events

import (
	"context"
	"log/slog"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/metrics"
	"dispatch/internal/pkg/pubsub"
)

// BrokerProducer ships one event to the message broker.
type BrokerProducer interface {
	Send(event kernel.DomainEvent) error
}

// Dispatcher implements ports.EventPublisher. The hub delivery feeds live
// tracking screens; the broker delivery feeds external consumers. Both are
// best effort: a failed delivery is logged and never surfaces to the
// command that committed the change.
type Dispatcher struct {
	hub      *pubsub.Hub
	producer BrokerProducer
	logger   *slog.Logger
}

// NewDispatcher creates a publisher over the hub and an optional broker
// producer. A nil producer disables broker delivery, which is how local
// development runs.
func NewDispatcher(hub *pubsub.Hub, producer BrokerProducer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		hub:      hub,
		producer: producer,
		logger:   logger.With("component", "event_dispatcher"),
	}
}

// Publish fans each event out to every topic it belongs to, then ships it
// to the broker.
func (d *Dispatcher) Publish(_ context.Context, domainEvents []kernel.DomainEvent) {
	for _, event := range domainEvents {
		for _, topic := range event.Topics() {
			d.hub.Publish(pubsub.Message{
				Topic:   topic,
				Name:    event.EventName(),
				Payload: event,
			})
		}
		metrics.EventsPublished.WithLabelValues("hub").Inc()

		if d.producer == nil {
			continue
		}
		if err := d.producer.Send(event); err != nil {
			d.logger.Error("broker delivery failed",
				"event", event.EventName(), "error", err)
			continue
		}
		metrics.EventsPublished.WithLabelValues("kafka").Inc()
	}
}
