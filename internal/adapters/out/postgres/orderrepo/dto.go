// Package orderrepo persists order aggregates with GORM, mapping between
// the domain model and the orders table.
package orderrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderDTO is the database representation of an order aggregate. Optional
// aggregate parts (assignment, coordinates, rating) map to nullable
// columns.
type OrderDTO struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	CustomerID         uuid.UUID `gorm:"type:uuid;index"`
	RestaurantID       uuid.UUID `gorm:"type:uuid;index"`
	Status             int       `gorm:"index"`
	PaymentStatus      int
	TotalPrice         float64
	DeliveryAddress    string
	DeliveryLat        *float64
	DeliveryLon        *float64
	RiderID            *uuid.UUID `gorm:"type:uuid;index"`
	AssignedAt         *time.Time `gorm:"index"`
	AssignmentAttempts int
	RequiresManual     bool
	AcceptedAt         *time.Time
	PickedUpAt         *time.Time
	CustomerConfirmed  bool
	RiderConfirmed     bool
	RatingScore        *int
	RatingFeedback     string
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

// TableName overrides GORM's default naming to use "orders".
func (OrderDTO) TableName() string {
	return "orders"
}

func fromDomain(aggregate *order.Order) OrderDTO {
	dto := OrderDTO{
		ID:                 aggregate.ID().Bytes(),
		CustomerID:         aggregate.CustomerID().Bytes(),
		RestaurantID:       aggregate.RestaurantID().Bytes(),
		Status:             int(aggregate.Status()),
		PaymentStatus:      int(aggregate.PaymentStatus()),
		TotalPrice:         aggregate.TotalPrice(),
		DeliveryAddress:    aggregate.DeliveryAddress(),
		AssignmentAttempts: aggregate.AssignmentAttempts(),
		RequiresManual:     aggregate.RequiresManualAssignment(),
		AcceptedAt:         aggregate.AcceptedAt(),
		PickedUpAt:         aggregate.PickedUpAt(),
		CustomerConfirmed:  aggregate.CustomerConfirmed(),
		RiderConfirmed:     aggregate.RiderConfirmed(),
		Version:            aggregate.Version(),
	}

	if point := aggregate.DeliveryPoint(); point != nil {
		lat, lon := point.Latitude(), point.Longitude()
		dto.DeliveryLat = &lat
		dto.DeliveryLon = &lon
	}
	if assignment := aggregate.Assignment(); assignment != nil {
		riderID := assignment.RiderID.Bytes()
		assignedAt := assignment.AssignedAt
		dto.RiderID = &riderID
		dto.AssignedAt = &assignedAt
	}
	if rating := aggregate.Rating(); rating != nil {
		score := rating.Score
		dto.RatingScore = &score
		dto.RatingFeedback = rating.Feedback
	}

	return dto
}

func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	customerID, err := kernel.UUIDFromBytes(dto.CustomerID[:])
	if err != nil {
		return nil, err
	}
	restaurantID, err := kernel.UUIDFromBytes(dto.RestaurantID[:])
	if err != nil {
		return nil, err
	}

	var point *kernel.GeoPoint
	if dto.DeliveryLat != nil && dto.DeliveryLon != nil {
		p, pointErr := kernel.NewGeoPoint(*dto.DeliveryLat, *dto.DeliveryLon)
		if pointErr != nil {
			return nil, pointErr
		}
		point = &p
	}

	var assignment *order.Assignment
	if dto.RiderID != nil && dto.AssignedAt != nil {
		riderID, idErr := kernel.UUIDFromBytes((*dto.RiderID)[:])
		if idErr != nil {
			return nil, idErr
		}
		assignment = &order.Assignment{
			RiderID:    riderID,
			AssignedAt: *dto.AssignedAt,
		}
	}

	var rating *order.Rating
	if dto.RatingScore != nil {
		rating = &order.Rating{
			Score:    *dto.RatingScore,
			Feedback: dto.RatingFeedback,
		}
	}

	return order.RestoreOrder(
		id, customerID, restaurantID,
		dto.DeliveryAddress, point, dto.TotalPrice,
		order.Status(dto.Status), order.PaymentStatus(dto.PaymentStatus),
		assignment, dto.AssignmentAttempts, dto.RequiresManual,
		dto.AcceptedAt, dto.PickedUpAt,
		dto.CustomerConfirmed, dto.RiderConfirmed,
		rating, dto.Version,
	)
}
