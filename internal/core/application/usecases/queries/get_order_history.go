package queries

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/guard"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrGetOrderHistoryQueryIsNotConstructed = errors.New(
	"GetOrderHistoryQuery must be created via NewGetOrderHistoryQuery constructor",
)

// DefaultHistoryLimit caps history reads when the caller does not ask for a
// specific page size.
const DefaultHistoryLimit = 50

// GetOrderHistoryQuery retrieves the status transition trail of one order,
// most recent first.
type GetOrderHistoryQuery struct {
	orderID kernel.UUID
	limit   int

	guard guard.ConstructorGuard
}

// NewGetOrderHistoryQuery creates a history query. A non-positive limit
// falls back to DefaultHistoryLimit.
func NewGetOrderHistoryQuery(orderID kernel.UUID, limit int) (GetOrderHistoryQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetOrderHistoryQuery{}, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return GetOrderHistoryQuery{
		orderID: orderID,
		limit:   limit,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetOrderHistoryQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderHistoryQueryIsNotConstructed)
}

func (q GetOrderHistoryQuery) OrderID() kernel.UUID { return q.orderID }
func (q GetOrderHistoryQuery) Limit() int           { return q.limit }

// GetOrderHistoryQueryResponse is one audit trail entry.
type GetOrderHistoryQueryResponse struct {
	FromStatus order.Status
	ToStatus   order.Status
	Actor      string
	Note       string
	CreatedAt  time.Time
}

// GetOrderHistoryQueryHandler reads the status log table for one order.
type GetOrderHistoryQueryHandler struct {
	db *gorm.DB
}

// NewGetOrderHistoryQueryHandler creates a handler for order history.
func NewGetOrderHistoryQueryHandler(db *gorm.DB) GetOrderHistoryQueryHandler {
	return GetOrderHistoryQueryHandler{db: db}
}

// Handle reads up to the limit of transitions, newest first.
func (h GetOrderHistoryQueryHandler) Handle(
	ctx context.Context,
	query GetOrderHistoryQuery,
) ([]GetOrderHistoryQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			from_status,
			to_status,
			actor,
			note,
			created_at
		FROM order_status_logs
		WHERE order_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, query.OrderID().Bytes(), query.Limit()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]GetOrderHistoryQueryResponse, 0, query.Limit())
	for rows.Next() {
		var entry GetOrderHistoryQueryResponse
		var from, to int

		if err = rows.Scan(&from, &to, &entry.Actor, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, err
		}

		entry.FromStatus = order.Status(from)
		entry.ToStatus = order.Status(to)
		history = append(history, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

// uuidColumn converts a scanned uuid column back into the domain UUID.
func uuidColumn(id uuid.UUID) (kernel.UUID, error) {
	return kernel.UUIDFromBytes(id[:])
}
