package rider

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

// LocationRecord is an immutable point in a rider's position history.
// Records are append-only in arrival order per rider and are trimmed only
// by the retention cleanup.
type LocationRecord struct {
	ID         kernel.UUID
	RiderID    kernel.UUID
	Point      kernel.GeoPoint
	Address    string
	RecordedAt time.Time
}

// NewLocationRecord creates a history record for an accepted position
// report.
func NewLocationRecord(riderID kernel.UUID, point kernel.GeoPoint, address string, at time.Time) (LocationRecord, error) {
	if err := riderID.Validate(); err != nil {
		return LocationRecord{}, err
	}
	if err := point.Validate(); err != nil {
		return LocationRecord{}, err
	}

	return LocationRecord{
		ID:         kernel.NewUUID(),
		RiderID:    riderID,
		Point:      point,
		Address:    address,
		RecordedAt: at,
	}, nil
}
