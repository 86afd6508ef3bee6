package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/payment"
)

// PaymentRepository defines the persistence contract for payment aggregates.
type PaymentRepository interface {
	// Add persists a new payment aggregate.
	Add(ctx context.Context, aggregate *payment.Payment) error

	// Update persists changes to an existing payment aggregate, guarded by
	// the aggregate's version.
	Update(ctx context.Context, aggregate *payment.Payment) error

	// Get retrieves a payment by id.
	Get(ctx context.Context, id kernel.UUID) (*payment.Payment, error)

	// GetByReference retrieves a payment by its gateway charge reference.
	// This is the lookup used by verification and webhooks.
	GetByReference(ctx context.Context, reference string) (*payment.Payment, error)

	// GetCompletedByOrder retrieves the completed payment for an order, if
	// one exists. At most one payment per order is ever Completed.
	GetCompletedByOrder(ctx context.Context, orderID kernel.UUID) (*payment.Payment, error)

	// DeleteFinishedOlderThan removes Failed and Cancelled payments created
	// before the cutoff and returns how many rows went away. Completed and
	// refund-related payments are kept for reconciliation.
	DeleteFinishedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
