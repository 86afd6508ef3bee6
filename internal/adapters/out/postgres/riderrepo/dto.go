// Package riderrepo persists rider aggregates with GORM.
package riderrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/rider"

	"github.com/google/uuid"
)

// RiderDTO is the database representation of a rider aggregate.
type RiderDTO struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Name              string
	VehicleType       int
	Online            bool `gorm:"index"`
	Latitude          *float64
	Longitude         *float64
	PositionUpdatedAt *time.Time
	LastKnownAddress  string
	RatingAverage     float64
	RatingCount       int
	ActiveOrderID     *uuid.UUID `gorm:"type:uuid;index"`
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName overrides GORM's default naming to use "riders".
func (RiderDTO) TableName() string {
	return "riders"
}

func fromDomain(aggregate *rider.Rider) RiderDTO {
	dto := RiderDTO{
		ID:                aggregate.ID().Bytes(),
		UserID:            aggregate.UserID().Bytes(),
		Name:              aggregate.Name(),
		VehicleType:       int(aggregate.VehicleType()),
		Online:            aggregate.Online(),
		PositionUpdatedAt: aggregate.PositionUpdatedAt(),
		LastKnownAddress:  aggregate.LastKnownAddress(),
		RatingAverage:     aggregate.RatingAverage(),
		RatingCount:       aggregate.RatingCount(),
		Version:           aggregate.Version(),
	}

	if point := aggregate.Position(); point != nil {
		lat, lon := point.Latitude(), point.Longitude()
		dto.Latitude = &lat
		dto.Longitude = &lon
	}
	if orderID := aggregate.ActiveOrderID(); orderID != nil {
		raw := orderID.Bytes()
		dto.ActiveOrderID = &raw
	}

	return dto
}

func toDomain(dto RiderDTO) (*rider.Rider, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	userID, err := kernel.UUIDFromBytes(dto.UserID[:])
	if err != nil {
		return nil, err
	}

	var point *kernel.GeoPoint
	if dto.Latitude != nil && dto.Longitude != nil {
		p, pointErr := kernel.NewGeoPoint(*dto.Latitude, *dto.Longitude)
		if pointErr != nil {
			return nil, pointErr
		}
		point = &p
	}

	var activeOrderID *kernel.UUID
	if dto.ActiveOrderID != nil {
		orderID, idErr := kernel.UUIDFromBytes((*dto.ActiveOrderID)[:])
		if idErr != nil {
			return nil, idErr
		}
		activeOrderID = &orderID
	}

	return rider.RestoreRider(
		id, userID, dto.Name, rider.VehicleType(dto.VehicleType),
		dto.Online, point, dto.PositionUpdatedAt, dto.LastKnownAddress,
		dto.RatingAverage, dto.RatingCount, activeOrderID, dto.Version,
	)
}
