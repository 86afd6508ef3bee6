// Package ports defines the contracts between the application core and
// infrastructure: repositories, the unit of work, the event publisher and
// the payment gateway. Adapters implement them; use cases depend on them.
package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
//
// Add and Update enforce optimistic concurrency: Update must fail with
// *errs.ConflictError when the stored version no longer matches the
// aggregate's loaded version, so two concurrent transitions can never both
// succeed from the same prior state.
type OrderRepository interface {
	// Add persists a new order aggregate.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists changes to an existing order aggregate, guarded by
	// the aggregate's version.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order by id. Soft-deleted orders are not returned.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetAllAssignedBefore retrieves OnRoute orders whose assignment
	// happened before the cutoff. Used by the expiry sweep.
	GetAllAssignedBefore(ctx context.Context, cutoff time.Time) ([]*order.Order, error)

	// GetAllReadyUnassigned retrieves Ready orders with no rider bound and
	// not flagged for manual assignment. Used by automatic dispatch.
	GetAllReadyUnassigned(ctx context.Context) ([]*order.Order, error)

	// CountByStatus returns the number of live orders per status.
	CountByStatus(ctx context.Context) (map[order.Status]int, error)

	// SoftDelete marks the order deleted without removing the row.
	// The aggregate must be in a deletable status.
	SoftDelete(ctx context.Context, id kernel.UUID) error
}
