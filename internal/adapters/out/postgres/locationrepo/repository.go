// Package locationrepo persists rider position history with GORM.
package locationrepo

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationDTO is the database representation of one position report.
type LocationDTO struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	RiderID    uuid.UUID `gorm:"type:uuid;index"`
	Latitude   float64
	Longitude  float64
	Address    string
	RecordedAt time.Time `gorm:"index"`
}

// TableName overrides GORM's default naming to use "rider_locations".
func (LocationDTO) TableName() string {
	return "rider_locations"
}

// GormLocationRepository implements ports.LocationRepository using GORM.
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GORM location repository.
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// Append stores a position report.
func (r *GormLocationRepository) Append(ctx context.Context, record rider.LocationRecord) error {
	dto := LocationDTO{
		ID:         record.ID.Bytes(),
		RiderID:    record.RiderID.Bytes(),
		Latitude:   record.Point.Latitude(),
		Longitude:  record.Point.Longitude(),
		Address:    record.Address,
		RecordedAt: record.RecordedAt,
	}

	return r.db.WithContext(ctx).Create(&dto).Error
}

// GetHistory retrieves up to limit reports for a rider, most recent first.
func (r *GormLocationRepository) GetHistory(ctx context.Context, riderID kernel.UUID, limit int) ([]rider.LocationRecord, error) {
	if err := riderID.Validate(); err != nil {
		return nil, err
	}

	var dtos []LocationDTO
	err := r.db.WithContext(ctx).
		Where("rider_id = ?", riderID.Bytes()).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	records := make([]rider.LocationRecord, 0, len(dtos))
	for _, dto := range dtos {
		id, idErr := kernel.UUIDFromBytes(dto.ID[:])
		if idErr != nil {
			return nil, idErr
		}
		recordRiderID, idErr := kernel.UUIDFromBytes(dto.RiderID[:])
		if idErr != nil {
			return nil, idErr
		}
		point, pointErr := kernel.NewGeoPoint(dto.Latitude, dto.Longitude)
		if pointErr != nil {
			return nil, pointErr
		}

		records = append(records, rider.LocationRecord{
			ID:         id,
			RiderID:    recordRiderID,
			Point:      point,
			Address:    dto.Address,
			RecordedAt: dto.RecordedAt,
		})
	}

	return records, nil
}

// DeleteOlderThan removes reports recorded before the cutoff.
func (r *GormLocationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("recorded_at < ?", cutoff).
		Delete(&LocationDTO{})

	return result.RowsAffected, result.Error
}
