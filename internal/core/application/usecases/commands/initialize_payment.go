package commands

import (
	"context"
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/payment"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrInitializePaymentCommandIsNotConstructed = errors.New(
	"InitializePaymentCommand must be created via NewInitializePaymentCommand constructor",
)

// InitializePaymentCommand represents a request to open a gateway checkout
// session for a pending order.
type InitializePaymentCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	email   string

	guard guard.ConstructorGuard
}

// NewInitializePaymentCommand creates a payment initialization command.
// The email is what the gateway requires to open a checkout session.
func NewInitializePaymentCommand(orderID kernel.UUID, email string) (InitializePaymentCommand, error) {
	if err := orderID.Validate(); err != nil {
		return InitializePaymentCommand{}, err
	}
	if email == "" {
		return InitializePaymentCommand{}, errs.NewValueIsRequiredError("email")
	}

	return InitializePaymentCommand{
		orderID: orderID,
		email:   email,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c InitializePaymentCommand) Validate() error {
	return c.guard.Validate(ErrInitializePaymentCommandIsNotConstructed)
}

func (c InitializePaymentCommand) OrderID() kernel.UUID { return c.orderID }
func (c InitializePaymentCommand) Email() string        { return c.email }

// InitializePaymentCommandHandler opens a checkout session with the gateway
// and records the Pending payment that verification will settle later.
type InitializePaymentCommandHandler struct {
	uowFactory  PaymentUoWFactory
	gateway     ports.PaymentGateway
	gatewayName string
	currency    string
	callbackURL string
}

// NewInitializePaymentCommandHandler creates a handler for payment
// initialization.
func NewInitializePaymentCommandHandler(
	uowFactory PaymentUoWFactory,
	gateway ports.PaymentGateway,
	gatewayName string,
	currency string,
	callbackURL string,
) InitializePaymentCommandHandler {
	return InitializePaymentCommandHandler{
		uowFactory:  uowFactory,
		gateway:     gateway,
		gatewayName: gatewayName,
		currency:    currency,
		callbackURL: callbackURL,
	}
}

// Handle opens the session and persists the Pending payment. The gateway
// call happens before the transaction so a slow upstream never holds a
// database connection.
func (h InitializePaymentCommandHandler) Handle(ctx context.Context, cmd InitializePaymentCommand) (ports.PaymentInitialization, error) {
	if err := cmd.Validate(); err != nil {
		return ports.PaymentInitialization{}, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return ports.PaymentInitialization{}, err
	}
	aggregate, err := uow.OrderRepository().Get(ctx, cmd.OrderID())
	_ = uow.Rollback(ctx)
	if err != nil {
		return ports.PaymentInitialization{}, err
	}

	if aggregate.Status() != order.Pending {
		return ports.PaymentInitialization{}, errs.NewInvalidOperationError("initialize_payment",
			"only pending orders can be paid for")
	}

	reference := kernel.NewUUID().String()
	session, err := h.gateway.Initialize(ctx, ports.InitializeRequest{
		Email:       cmd.Email(),
		Amount:      aggregate.TotalPrice(),
		Currency:    h.currency,
		Reference:   reference,
		CallbackURL: h.callbackURL,
	})
	if err != nil {
		return ports.PaymentInitialization{}, err
	}

	record, err := payment.NewPayment(
		kernel.NewUUID(),
		aggregate.ID(),
		aggregate.TotalPrice(),
		h.currency,
		h.gatewayName,
		session.Reference,
	)
	if err != nil {
		return ports.PaymentInitialization{}, err
	}

	uow = h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return ports.PaymentInitialization{}, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.PaymentRepository().Add(ctx, record); err != nil {
		return ports.PaymentInitialization{}, err
	}
	if err = uow.Commit(ctx); err != nil {
		return ports.PaymentInitialization{}, err
	}

	return session, nil
}
