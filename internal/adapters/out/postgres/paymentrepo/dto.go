// Package paymentrepo persists payment aggregates with GORM.
package paymentrepo

import (
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/payment"

	"github.com/google/uuid"
)

// PaymentDTO is the database representation of a payment aggregate. The
// gateway reference is unique: one checkout session maps to exactly one
// payment row, which is what makes webhook replays harmless.
type PaymentDTO struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID `gorm:"type:uuid;index"`
	Amount        float64
	Currency      string
	Gateway       string
	Status        int    `gorm:"index"`
	Reference     string `gorm:"uniqueIndex"`
	TransactionID string
	PaidAt        *time.Time
	FailedAt      *time.Time
	RefundedAt    *time.Time
	FailureReason string
	RefundReason  string
	RawResponse   []byte
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides GORM's default naming to use "payments".
func (PaymentDTO) TableName() string {
	return "payments"
}

func fromDomain(aggregate *payment.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            aggregate.ID().Bytes(),
		OrderID:       aggregate.OrderID().Bytes(),
		Amount:        aggregate.Amount(),
		Currency:      aggregate.Currency(),
		Gateway:       aggregate.Gateway(),
		Status:        int(aggregate.Status()),
		Reference:     aggregate.Reference(),
		TransactionID: aggregate.TransactionID(),
		PaidAt:        aggregate.PaidAt(),
		FailedAt:      aggregate.FailedAt(),
		RefundedAt:    aggregate.RefundedAt(),
		FailureReason: aggregate.FailureReason(),
		RefundReason:  aggregate.RefundReason(),
		RawResponse:   aggregate.RawResponse(),
		Version:       aggregate.Version(),
	}
}

func toDomain(dto PaymentDTO) (*payment.Payment, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}

	return payment.RestorePayment(
		id, orderID, dto.Amount, dto.Currency, dto.Gateway,
		dto.Reference, payment.Status(dto.Status), dto.TransactionID,
		dto.PaidAt, dto.FailedAt, dto.RefundedAt,
		dto.FailureReason, dto.RefundReason, dto.RawResponse, dto.Version,
	)
}
