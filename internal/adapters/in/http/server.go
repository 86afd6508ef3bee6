// Package http is the inbound REST adapter. Handlers parse and validate
// the wire format, build commands and queries, and translate the error
// taxonomy to status codes. All business rules live behind the handlers.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/pubsub"
)

// Server holds the command and query handlers behind the REST surface.
type Server struct {
	// Command handlers
	createOrderHandler       commands.CreateOrderCommandHandler
	updateOrderStatusHandler commands.UpdateOrderStatusCommandHandler
	cancelOrderHandler       commands.CancelOrderCommandHandler
	assignRiderHandler       commands.AssignRiderCommandHandler
	confirmDeliveryHandler   commands.ConfirmDeliveryCommandHandler
	submitRatingHandler      commands.SubmitRatingCommandHandler
	deleteOrderHandler       commands.DeleteOrderCommandHandler
	bulkUpdateStatusHandler  commands.BulkUpdateStatusCommandHandler
	bulkAssignRidersHandler  commands.BulkAssignRidersCommandHandler
	updateLocationHandler    commands.UpdateRiderLocationCommandHandler
	setAvailabilityHandler   commands.SetRiderAvailabilityCommandHandler
	initializePaymentHandler commands.InitializePaymentCommandHandler
	verifyPaymentHandler     commands.VerifyPaymentCommandHandler
	paymentWebhookHandler    commands.PaymentWebhookCommandHandler
	initiateRefundHandler    commands.InitiateRefundCommandHandler

	// Query handlers
	getOrderHandler           queries.GetOrderQueryHandler
	getOrderHistoryHandler    queries.GetOrderHistoryQueryHandler
	getOrderStatsHandler      queries.GetOrderStatsQueryHandler
	getLiveLocationHandler    queries.GetLiveLocationQueryHandler
	getLocationHistoryHandler queries.GetLocationHistoryQueryHandler
	findNearestRidersHandler  queries.FindNearestRidersQueryHandler

	// Live event fanout for tracking streams
	hub *pubsub.Hub
}

// Handlers bundles everything the server needs. Grouping them in a struct
// keeps the composition root readable.
type Handlers struct {
	CreateOrder       commands.CreateOrderCommandHandler
	UpdateOrderStatus commands.UpdateOrderStatusCommandHandler
	CancelOrder       commands.CancelOrderCommandHandler
	AssignRider       commands.AssignRiderCommandHandler
	ConfirmDelivery   commands.ConfirmDeliveryCommandHandler
	SubmitRating      commands.SubmitRatingCommandHandler
	DeleteOrder       commands.DeleteOrderCommandHandler
	BulkUpdateStatus  commands.BulkUpdateStatusCommandHandler
	BulkAssignRiders  commands.BulkAssignRidersCommandHandler
	UpdateLocation    commands.UpdateRiderLocationCommandHandler
	SetAvailability   commands.SetRiderAvailabilityCommandHandler
	InitializePayment commands.InitializePaymentCommandHandler
	VerifyPayment     commands.VerifyPaymentCommandHandler
	PaymentWebhook    commands.PaymentWebhookCommandHandler
	InitiateRefund    commands.InitiateRefundCommandHandler

	GetOrder           queries.GetOrderQueryHandler
	GetOrderHistory    queries.GetOrderHistoryQueryHandler
	GetOrderStats      queries.GetOrderStatsQueryHandler
	GetLiveLocation    queries.GetLiveLocationQueryHandler
	GetLocationHistory queries.GetLocationHistoryQueryHandler
	FindNearestRiders  queries.FindNearestRidersQueryHandler
}

// NewServer creates the HTTP server over the given handlers and hub.
func NewServer(handlers Handlers, hub *pubsub.Hub) *Server {
	return &Server{
		createOrderHandler:       handlers.CreateOrder,
		updateOrderStatusHandler: handlers.UpdateOrderStatus,
		cancelOrderHandler:       handlers.CancelOrder,
		assignRiderHandler:       handlers.AssignRider,
		confirmDeliveryHandler:   handlers.ConfirmDelivery,
		submitRatingHandler:      handlers.SubmitRating,
		deleteOrderHandler:       handlers.DeleteOrder,
		bulkUpdateStatusHandler:  handlers.BulkUpdateStatus,
		bulkAssignRidersHandler:  handlers.BulkAssignRiders,
		updateLocationHandler:    handlers.UpdateLocation,
		setAvailabilityHandler:   handlers.SetAvailability,
		initializePaymentHandler: handlers.InitializePayment,
		verifyPaymentHandler:     handlers.VerifyPayment,
		paymentWebhookHandler:    handlers.PaymentWebhook,
		initiateRefundHandler:    handlers.InitiateRefund,

		getOrderHandler:           handlers.GetOrder,
		getOrderHistoryHandler:    handlers.GetOrderHistory,
		getOrderStatsHandler:      handlers.GetOrderStats,
		getLiveLocationHandler:    handlers.GetLiveLocation,
		getLocationHistoryHandler: handlers.GetLocationHistory,
		findNearestRidersHandler:  handlers.FindNearestRiders,

		hub: hub,
	}
}

// RegisterRoutes mounts the API under /api/v1 plus the metrics endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")

	api.POST("/orders", s.CreateOrder)
	api.GET("/orders/stats", s.GetOrderStats)
	api.POST("/orders/bulk/status", s.BulkUpdateStatus)
	api.POST("/orders/bulk/assign", s.BulkAssignRiders)
	api.GET("/orders/:id", s.GetOrder)
	api.DELETE("/orders/:id", s.DeleteOrder)
	api.PATCH("/orders/:id/status", s.UpdateOrderStatus)
	api.POST("/orders/:id/cancel", s.CancelOrder)
	api.POST("/orders/:id/assign", s.AssignRider)
	api.POST("/orders/:id/confirm", s.ConfirmDelivery)
	api.POST("/orders/:id/rating", s.SubmitRating)
	api.GET("/orders/:id/history", s.GetOrderHistory)
	api.GET("/orders/:id/events", s.StreamOrderEvents)

	api.GET("/riders/nearest", s.FindNearestRiders)
	api.POST("/riders/:id/location", s.UpdateRiderLocation)
	api.PATCH("/riders/:id/availability", s.SetRiderAvailability)
	api.GET("/riders/:id/location/live", s.GetLiveLocation)
	api.GET("/riders/:id/location/history", s.GetLocationHistory)

	api.POST("/payments/initialize", s.InitializePayment)
	api.GET("/payments/verify/:reference", s.VerifyPayment)
	api.POST("/payments/:id/refund", s.InitiateRefund)
	api.POST("/webhooks/paystack", s.PaymentWebhook)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// pathUUID parses the :id path parameter of the current route.
func pathUUID(ctx echo.Context) (kernel.UUID, error) {
	return kernel.UUIDFromString(ctx.Param("id"))
}
