package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

type createOrderRequest struct {
	CustomerID      string   `json:"customer_id"`
	RestaurantID    string   `json:"restaurant_id"`
	DeliveryAddress string   `json:"delivery_address"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	TotalPrice      float64  `json:"total_price"`
}

type orderResponse struct {
	ID                 string     `json:"id"`
	CustomerID         string     `json:"customer_id"`
	RestaurantID       string     `json:"restaurant_id"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	TotalPrice         float64    `json:"total_price"`
	DeliveryAddress    string     `json:"delivery_address"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	RiderID            *string    `json:"rider_id,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	AssignmentAttempts int        `json:"assignment_attempts"`
	RequiresManual     bool       `json:"requires_manual_assignment"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty"`
	PickedUpAt         *time.Time `json:"picked_up_at,omitempty"`
	CustomerConfirmed  bool       `json:"customer_confirmed"`
	RiderConfirmed     bool       `json:"rider_confirmed"`
	RatingScore        *int       `json:"rating_score,omitempty"`
	RatingFeedback     string     `json:"rating_feedback,omitempty"`
	EstimatedMinutes   int        `json:"estimated_minutes_to_delivery"`
}

// CreateOrder handles POST /api/v1/orders.
func (s *Server) CreateOrder(ctx echo.Context) error {
	var req createOrderRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	customerID, err := kernel.UUIDFromString(req.CustomerID)
	if err != nil {
		return writeError(ctx, err)
	}
	restaurantID, err := kernel.UUIDFromString(req.RestaurantID)
	if err != nil {
		return writeError(ctx, err)
	}

	orderID := kernel.NewUUID()
	cmd, err := commands.NewCreateOrderCommand(orderID, customerID, restaurantID,
		req.DeliveryAddress, req.Latitude, req.Longitude, req.TotalPrice)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.createOrderHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"id": orderID.String()})
}

// GetOrder handles GET /api/v1/orders/:id.
func (s *Server) GetOrder(ctx echo.Context) error {
	orderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	query, err := queries.NewGetOrderQuery(orderID)
	if err != nil {
		return writeError(ctx, err)
	}

	found, err := s.getOrderHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, toOrderResponse(found))
}

func toOrderResponse(found queries.GetOrderQueryResponse) orderResponse {
	resp := orderResponse{
		ID:                 found.ID.String(),
		CustomerID:         found.CustomerID.String(),
		RestaurantID:       found.RestaurantID.String(),
		Status:             found.Status.String(),
		PaymentStatus:      found.PaymentStatus.String(),
		TotalPrice:         found.TotalPrice,
		DeliveryAddress:    found.DeliveryAddress,
		Latitude:           found.DeliveryLatitude,
		Longitude:          found.DeliveryLongitude,
		AssignedAt:         found.AssignedAt,
		AssignmentAttempts: found.AssignmentAttempts,
		RequiresManual:     found.RequiresManual,
		AcceptedAt:         found.AcceptedAt,
		PickedUpAt:         found.PickedUpAt,
		CustomerConfirmed:  found.CustomerConfirmed,
		RiderConfirmed:     found.RiderConfirmed,
		RatingScore:        found.RatingScore,
		RatingFeedback:     found.RatingFeedback,
		EstimatedMinutes:   found.Status.EstimatedMinutesToDelivery(),
	}
	if found.RiderID != nil {
		riderID := found.RiderID.String()
		resp.RiderID = &riderID
	}
	return resp
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
	Note   string `json:"note,omitempty"`
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status.
func (s *Server) UpdateOrderStatus(ctx echo.Context) error {
	orderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	var req updateStatusRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	toStatus, err := order.ParseStatus(req.Status)
	if err != nil {
		return writeError(ctx, err)
	}

	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, toStatus, req.Actor, req.Note)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.updateOrderStatusHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

type cancelOrderRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

// CancelOrder handles POST /api/v1/orders/:id/cancel.
func (s *Server) CancelOrder(ctx echo.Context) error {
	orderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	var req cancelOrderRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	cmd, err := commands.NewCancelOrderCommand(orderID, req.Actor, req.Reason)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.cancelOrderHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

type assignRiderRequest struct {
	RiderID string `json:"rider_id"`
	Actor   string `json:"actor"`
}

// AssignRider handles POST /api/v1/orders/:id/assign.
func (s *Server) AssignRider(ctx echo.Context) error {
	orderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	var req assignRiderRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	riderID, err := kernel.UUIDFromString(req.RiderID)
	if err != nil {
		return writeError(ctx, err)
	}

	cmd, err := commands.NewAssignRiderCommand(orderID, riderID, req.Actor)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.assignRiderHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

type confirmDeliveryRequest struct {
	Party string `json:"party"`
	Actor string `json:"actor"`
}

// ConfirmDelivery handles POST /api/v1/orders/:id/confirm.
func (s *Server) ConfirmDelivery(ctx echo.Context) error {
	orderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	var req confirmDeliveryRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	var party commands.ConfirmingParty
	switch req.Party {
	case "customer":
		party = commands.PartyCustomer
	case "rider":
		party = commands.PartyRider
	default:
		return badRequest(ctx, "party must be customer or rider")
	}

	cmd, err := commands.NewConfirmDeliveryCommand(orderID, party, req.Actor)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.confirmDeliveryHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

type submitRatingRequest struct {
	Actor    string `json:"actor"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

// SubmitRating handles POST /api/v1/orders/:id/rating.
func (s *Server) SubmitRating(ctx echo.Context) error {
	orderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	var req submitRatingRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	cmd, err := commands.NewSubmitRatingCommand(orderID, req.Actor, req.Rating, req.Feedback)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.submitRatingHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// DeleteOrder handles DELETE /api/v1/orders/:id.
func (s *Server) DeleteOrder(ctx echo.Context) error {
	orderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	cmd, err := commands.NewDeleteOrderCommand(orderID)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.deleteOrderHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

type bulkUpdateStatusRequest struct {
	OrderIDs []string `json:"order_ids"`
	Status   string   `json:"status"`
	Actor    string   `json:"actor"`
	Note     string   `json:"note,omitempty"`
}

// BulkUpdateStatus handles POST /api/v1/orders/bulk/status.
func (s *Server) BulkUpdateStatus(ctx echo.Context) error {
	var req bulkUpdateStatusRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	orderIDs, err := parseUUIDs(req.OrderIDs)
	if err != nil {
		return writeError(ctx, err)
	}

	toStatus, err := order.ParseStatus(req.Status)
	if err != nil {
		return writeError(ctx, err)
	}

	cmd, err := commands.NewBulkUpdateStatusCommand(orderIDs, toStatus, req.Actor, req.Note)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.bulkUpdateStatusHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

type bulkAssignRidersRequest struct {
	OrderIDs []string `json:"order_ids"`
	RiderID  string   `json:"rider_id"`
	Actor    string   `json:"actor"`
}

// BulkAssignRiders handles POST /api/v1/orders/bulk/assign.
func (s *Server) BulkAssignRiders(ctx echo.Context) error {
	var req bulkAssignRidersRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	orderIDs, err := parseUUIDs(req.OrderIDs)
	if err != nil {
		return writeError(ctx, err)
	}

	riderID, err := kernel.UUIDFromString(req.RiderID)
	if err != nil {
		return writeError(ctx, err)
	}

	cmd, err := commands.NewBulkAssignRidersCommand(orderIDs, riderID, req.Actor)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.bulkAssignRidersHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

type statusLogResponse struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// GetOrderHistory handles GET /api/v1/orders/:id/history.
func (s *Server) GetOrderHistory(ctx echo.Context) error {
	orderID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	limit := queryLimit(ctx, queries.DefaultHistoryLimit)
	query, err := queries.NewGetOrderHistoryQuery(orderID, limit)
	if err != nil {
		return writeError(ctx, err)
	}

	entries, err := s.getOrderHistoryHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeError(ctx, err)
	}

	response := make([]statusLogResponse, len(entries))
	for i, entry := range entries {
		response[i] = statusLogResponse{
			FromStatus: entry.FromStatus.String(),
			ToStatus:   entry.ToStatus.String(),
			Actor:      entry.Actor,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// GetOrderStats handles GET /api/v1/orders/stats.
func (s *Server) GetOrderStats(ctx echo.Context) error {
	stats, err := s.getOrderStatsHandler.Handle(
		ctx.Request().Context(), queries.NewGetOrderStatsQuery())
	if err != nil {
		return writeError(ctx, err)
	}

	counts := make(map[string]int, len(stats.Counts))
	for status, count := range stats.Counts {
		counts[status.String()] = count
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"counts": counts,
		"total":  stats.Total,
	})
}

func parseUUIDs(values []string) ([]kernel.UUID, error) {
	ids := make([]kernel.UUID, len(values))
	for i, value := range values {
		id, err := kernel.UUIDFromString(value)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func queryLimit(ctx echo.Context, fallback int) int {
	raw := ctx.QueryParam("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	return limit
}
