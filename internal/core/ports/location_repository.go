package ports

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"
)

// LocationRepository is the append-only history of rider position reports.
// The live value is served from the in-memory cache, not from here.
type LocationRepository interface {
	// Append stores a position record.
	Append(ctx context.Context, record rider.LocationRecord) error

	// GetHistory retrieves up to limit records for a rider, most recent
	// first.
	GetHistory(ctx context.Context, riderID kernel.UUID, limit int) ([]rider.LocationRecord, error)

	// DeleteOlderThan removes records recorded before the cutoff and
	// returns how many were removed. Used by retention cleanup.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
