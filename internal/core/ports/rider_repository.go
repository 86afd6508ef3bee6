package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
)

// RiderRepository defines the persistence contract for rider aggregates.
//
// Update is version-guarded like OrderRepository.Update: when two orders
// race for the same rider, exactly one Update succeeds and the loser gets
// *errs.ConflictError, which is what makes the no-double-booking rule hold
// under concurrency.
type RiderRepository interface {
	// Add persists a new rider aggregate.
	Add(ctx context.Context, aggregate *rider.Rider) error

	// Update persists changes to an existing rider aggregate, guarded by
	// the aggregate's version.
	Update(ctx context.Context, aggregate *rider.Rider) error

	// Get retrieves a rider by id.
	Get(ctx context.Context, id kernel.UUID) (*rider.Rider, error)

	// GetAllOnline retrieves riders currently flagged online with a
	// reported position. Staleness filtering is the dispatcher's job.
	GetAllOnline(ctx context.Context) ([]*rider.Rider, error)
}
