package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
)

// EventPublisher delivers committed domain events to the outside world:
// the in-process subscriber hub and the message broker. Use cases call it
// after a successful commit, never inside the transaction.
type EventPublisher interface {
	// Publish delivers the events in order. Delivery is best effort; a
	// failed publish is logged by the implementation and does not undo
	// the committed state change.
	Publish(ctx context.Context, events []kernel.DomainEvent)
}
