package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// StatusLogRepository is the append-only audit trail of status transitions.
// Writes are best effort: a failed append is logged by the caller and never
// rolls back the transition it records.
type StatusLogRepository interface {
	// Append stores a transition record.
	Append(ctx context.Context, record order.StatusLog) error

	// GetByOrder retrieves up to limit records for an order, most recent
	// first.
	GetByOrder(ctx context.Context, orderID kernel.UUID, limit int) ([]order.StatusLog, error)

	// DeleteOlderThan removes records created before the cutoff and
	// returns how many were removed. Used by retention cleanup.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
