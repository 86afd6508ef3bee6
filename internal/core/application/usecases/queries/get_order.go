package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrGetOrderQueryIsNotConstructed = errors.New(
	"GetOrderQuery must be created via NewGetOrderQuery constructor",
)

// GetOrderQuery retrieves one order's full read model.
type GetOrderQuery struct {
	orderID kernel.UUID

	guard guard.ConstructorGuard
}

// NewGetOrderQuery creates a single-order query.
func NewGetOrderQuery(orderID kernel.UUID) (GetOrderQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetOrderQuery{}, err
	}

	return GetOrderQuery{
		orderID: orderID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
func (q GetOrderQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderQueryIsNotConstructed)
}

func (q GetOrderQuery) OrderID() kernel.UUID { return q.orderID }

// GetOrderQueryResponse is the order read model served to clients.
type GetOrderQueryResponse struct {
	ID                 kernel.UUID
	CustomerID         kernel.UUID
	RestaurantID       kernel.UUID
	Status             order.Status
	PaymentStatus      order.PaymentStatus
	TotalPrice         float64
	DeliveryAddress    string
	DeliveryLatitude   *float64
	DeliveryLongitude  *float64
	RiderID            *kernel.UUID
	AssignedAt         *time.Time
	AssignmentAttempts int
	RequiresManual     bool
	AcceptedAt         *time.Time
	PickedUpAt         *time.Time
	CustomerConfirmed  bool
	RiderConfirmed     bool
	RatingScore        *int
	RatingFeedback     string
}

// GetOrderQueryHandler reads a single order row.
type GetOrderQueryHandler struct {
	db *gorm.DB
}

// NewGetOrderQueryHandler creates a handler for single-order reads.
func NewGetOrderQueryHandler(db *gorm.DB) GetOrderQueryHandler {
	return GetOrderQueryHandler{db: db}
}

// Handle reads the order or returns *errs.ObjectNotFoundError.
func (h GetOrderQueryHandler) Handle(
	ctx context.Context,
	query GetOrderQuery,
) (GetOrderQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetOrderQueryResponse{}, err
	}

	row := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			customer_id,
			restaurant_id,
			status,
			payment_status,
			total_price,
			delivery_address,
			delivery_lat,
			delivery_lon,
			rider_id,
			assigned_at,
			assignment_attempts,
			requires_manual,
			accepted_at,
			picked_up_at,
			customer_confirmed,
			rider_confirmed,
			rating_score,
			rating_feedback,
			version
	  FROM orders
	  WHERE id = ? AND deleted_at IS NULL
	`, query.OrderID().Bytes()).Row()

	var (
		id, customerID, restaurantID uuid.UUID
		status, paymentStatus        int
		riderID                      uuid.NullUUID
		ratingScore                  sql.NullInt64
		ratingFeedback               sql.NullString
		version                      int
		response                     GetOrderQueryResponse
	)

	err := row.Scan(&id, &customerID, &restaurantID, &status, &paymentStatus,
		&response.TotalPrice, &response.DeliveryAddress,
		&response.DeliveryLatitude, &response.DeliveryLongitude,
		&riderID, &response.AssignedAt, &response.AssignmentAttempts,
		&response.RequiresManual, &response.AcceptedAt, &response.PickedUpAt,
		&response.CustomerConfirmed, &response.RiderConfirmed,
		&ratingScore, &ratingFeedback, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return GetOrderQueryResponse{}, errs.NewObjectNotFoundError("order", query.OrderID())
	}
	if err != nil {
		return GetOrderQueryResponse{}, err
	}

	if response.ID, err = uuidColumn(id); err != nil {
		return GetOrderQueryResponse{}, err
	}
	if response.CustomerID, err = uuidColumn(customerID); err != nil {
		return GetOrderQueryResponse{}, err
	}
	if response.RestaurantID, err = uuidColumn(restaurantID); err != nil {
		return GetOrderQueryResponse{}, err
	}
	if riderID.Valid {
		assigned, idErr := uuidColumn(riderID.UUID)
		if idErr != nil {
			return GetOrderQueryResponse{}, idErr
		}
		response.RiderID = &assigned
	}
	if ratingScore.Valid {
		score := int(ratingScore.Int64)
		response.RatingScore = &score
	}
	if ratingFeedback.Valid {
		response.RatingFeedback = ratingFeedback.String
	}

	response.Status = order.Status(status)
	response.PaymentStatus = order.PaymentStatus(paymentStatus)

	return response, nil
}
