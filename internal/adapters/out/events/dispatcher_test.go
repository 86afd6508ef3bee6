package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch/internal/adapters/out/events"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/pubsub"
)

type recordingProducer struct {
	sent []string
	err  error
}

func (p *recordingProducer) Send(event kernel.DomainEvent) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, event.EventName())
	return nil
}

func TestDispatcher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newEvent := func(orderID kernel.UUID) kernel.DomainEvent {
		return order.StatusUpdatedEvent{
			OrderID:    orderID,
			FromStatus: order.Pending,
			ToStatus:   order.Accepted,
			OccurredAt: time.Now(),
		}
	}

	t.Run("delivers to hub subscribers and the broker", func(t *testing.T) {
		hub := pubsub.NewHub(4)
		producer := &recordingProducer{}
		dispatcher := events.NewDispatcher(hub, producer, logger)

		orderID := kernel.NewUUID()
		sub := hub.Subscribe(kernel.OrderTopic(orderID))
		defer sub.Close()

		dispatcher.Publish(context.Background(), []kernel.DomainEvent{newEvent(orderID)})

		select {
		case msg := <-sub.C:
			assert.Equal(t, "order.status.updated", msg.Name)
			assert.Equal(t, kernel.OrderTopic(orderID), msg.Topic)
		default:
			t.Fatal("expected a hub delivery")
		}

		require.Equal(t, []string{"order.status.updated"}, producer.sent)
	})

	t.Run("a broker failure does not stop hub delivery", func(t *testing.T) {
		hub := pubsub.NewHub(4)
		producer := &recordingProducer{err: errors.New("broker down")}
		dispatcher := events.NewDispatcher(hub, producer, logger)

		orderID := kernel.NewUUID()
		sub := hub.Subscribe(kernel.OrderTopic(orderID))
		defer sub.Close()

		dispatcher.Publish(context.Background(), []kernel.DomainEvent{newEvent(orderID)})

		select {
		case msg := <-sub.C:
			assert.Equal(t, "order.status.updated", msg.Name)
		default:
			t.Fatal("expected a hub delivery")
		}
	})

	t.Run("runs without a broker", func(t *testing.T) {
		hub := pubsub.NewHub(4)
		dispatcher := events.NewDispatcher(hub, nil, logger)

		assert.NotPanics(t, func() {
			dispatcher.Publish(context.Background(),
				[]kernel.DomainEvent{newEvent(kernel.NewUUID())})
		})
	})
}
