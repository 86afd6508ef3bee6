package commands

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrInitiateRefundCommandIsNotConstructed = errors.New(
	"InitiateRefundCommand must be created via NewInitiateRefundCommand constructor",
)

// InitiateRefundCommand asks the gateway to return the money for a
// completed payment.
type InitiateRefundCommand struct { //nolint:recvcheck //using for validation
	paymentID kernel.UUID
	reason    string

	guard guard.ConstructorGuard
}

// NewInitiateRefundCommand creates a refund command.
func NewInitiateRefundCommand(paymentID kernel.UUID, reason string) (InitiateRefundCommand, error) {
	if err := paymentID.Validate(); err != nil {
		return InitiateRefundCommand{}, err
	}
	if reason == "" {
		return InitiateRefundCommand{}, errs.NewValueIsRequiredError("reason")
	}

	return InitiateRefundCommand{
		paymentID: paymentID,
		reason:    reason,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c InitiateRefundCommand) Validate() error {
	return c.guard.Validate(ErrInitiateRefundCommandIsNotConstructed)
}

func (c InitiateRefundCommand) PaymentID() kernel.UUID { return c.paymentID }
func (c InitiateRefundCommand) Reason() string         { return c.reason }

// InitiateRefundCommandHandler moves a completed payment to pending-refund
// once the gateway accepts the refund request. The refund.processed webhook
// finishes the job later.
type InitiateRefundCommandHandler struct {
	uowFactory PaymentUoWFactory
	gateway    ports.PaymentGateway
}

// NewInitiateRefundCommandHandler creates a handler for refund initiation.
func NewInitiateRefundCommandHandler(
	uowFactory PaymentUoWFactory,
	gateway ports.PaymentGateway,
) InitiateRefundCommandHandler {
	return InitiateRefundCommandHandler{uowFactory: uowFactory, gateway: gateway}
}

// Handle validates the transition locally, then calls the gateway before
// committing. A gateway rejection rolls everything back and the payment
// stays completed.
func (h InitiateRefundCommandHandler) Handle(ctx context.Context, cmd InitiateRefundCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	record, err := uow.PaymentRepository().Get(ctx, cmd.PaymentID())
	if err != nil {
		return err
	}

	if err = record.RequestRefund(cmd.Reason()); err != nil {
		return err
	}

	if err = h.gateway.Refund(ctx, record.TransactionID(), cmd.Reason()); err != nil {
		return err
	}

	if err = uow.PaymentRepository().Update(ctx, record); err != nil {
		return err
	}

	return uow.Commit(ctx)
}
