// Package statuslogrepo persists the order status audit trail with GORM.
package statuslogrepo

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusLogDTO is the database representation of one transition record.
type StatusLogDTO struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"type:uuid;index"`
	FromStatus int
	ToStatus   int
	Actor      string
	Note       string
	CreatedAt  time.Time `gorm:"index"`
}

// TableName overrides GORM's default naming to use "order_status_logs".
func (StatusLogDTO) TableName() string {
	return "order_status_logs"
}

// GormStatusLogRepository implements ports.StatusLogRepository using GORM.
type GormStatusLogRepository struct {
	db *gorm.DB
}

// NewGormStatusLogRepository creates a new GORM status log repository.
func NewGormStatusLogRepository(db *gorm.DB) *GormStatusLogRepository {
	return &GormStatusLogRepository{db: db}
}

// Append stores a transition record.
func (r *GormStatusLogRepository) Append(ctx context.Context, record order.StatusLog) error {
	dto := StatusLogDTO{
		ID:         record.ID.Bytes(),
		OrderID:    record.OrderID.Bytes(),
		FromStatus: int(record.FromStatus),
		ToStatus:   int(record.ToStatus),
		Actor:      record.Actor,
		Note:       record.Note,
		CreatedAt:  record.CreatedAt,
	}

	return r.db.WithContext(ctx).Create(&dto).Error
}

// GetByOrder retrieves up to limit records for an order, most recent first.
func (r *GormStatusLogRepository) GetByOrder(ctx context.Context, orderID kernel.UUID, limit int) ([]order.StatusLog, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dtos []StatusLogDTO
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID.Bytes()).
		Order("created_at DESC").
		Limit(limit).
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	records := make([]order.StatusLog, 0, len(dtos))
	for _, dto := range dtos {
		id, idErr := kernel.UUIDFromBytes(dto.ID[:])
		if idErr != nil {
			return nil, idErr
		}
		recordOrderID, idErr := kernel.UUIDFromBytes(dto.OrderID[:])
		if idErr != nil {
			return nil, idErr
		}

		records = append(records, order.StatusLog{
			ID:         id,
			OrderID:    recordOrderID,
			FromStatus: order.Status(dto.FromStatus),
			ToStatus:   order.Status(dto.ToStatus),
			Actor:      dto.Actor,
			Note:       dto.Note,
			CreatedAt:  dto.CreatedAt,
		})
	}

	return records, nil
}

// DeleteOlderThan removes records created before the cutoff.
func (r *GormStatusLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&StatusLogDTO{})

	return result.RowsAffected, result.Error
}
