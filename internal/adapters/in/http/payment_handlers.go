package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"
)

// paystackSignatureHeader carries the HMAC of the raw webhook body.
const paystackSignatureHeader = "x-paystack-signature"

type initializePaymentRequest struct {
	OrderID string `json:"order_id"`
	Email   string `json:"email"`
}

// InitializePayment handles POST /api/v1/payments/initialize.
func (s *Server) InitializePayment(ctx echo.Context) error {
	var req initializePaymentRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	orderID, err := kernel.UUIDFromString(req.OrderID)
	if err != nil {
		return writeError(ctx, err)
	}

	cmd, err := commands.NewInitializePaymentCommand(orderID, req.Email)
	if err != nil {
		return writeError(ctx, err)
	}

	session, err := s.initializePaymentHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"authorization_url": session.AuthorizationURL,
		"access_code":       session.AccessCode,
		"reference":         session.Reference,
	})
}

// VerifyPayment handles GET /api/v1/payments/verify/:reference.
func (s *Server) VerifyPayment(ctx echo.Context) error {
	cmd, err := commands.NewVerifyPaymentCommand(ctx.Param("reference"))
	if err != nil {
		return writeError(ctx, err)
	}

	result, err := s.verifyPaymentHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"payment_status": result.PaymentStatus.String(),
		"order_status":   result.OrderStatus.String(),
	})
}

type initiateRefundRequest struct {
	Reason string `json:"reason"`
}

// InitiateRefund handles POST /api/v1/payments/:id/refund.
func (s *Server) InitiateRefund(ctx echo.Context) error {
	paymentID, err := pathUUID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	var req initiateRefundRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	cmd, err := commands.NewInitiateRefundCommand(paymentID, req.Reason)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.initiateRefundHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusAccepted)
}

// PaymentWebhook handles POST /api/v1/webhooks/paystack. The raw body is
// read before any decoding: the signature covers the bytes on the wire.
func (s *Server) PaymentWebhook(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return badRequest(ctx, "unreadable request body")
	}

	cmd, err := commands.NewPaymentWebhookCommand(payload, ctx.Request().Header.Get(paystackSignatureHeader))
	if err != nil {
		return writeError(ctx, err)
	}

	if err := s.paymentWebhookHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeError(ctx, err)
	}

	return ctx.NoContent(http.StatusOK)
}
