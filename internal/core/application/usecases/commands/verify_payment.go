package commands

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/payment"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
	"dispatch/internal/pkg/metrics"
)

var ErrVerifyPaymentCommandIsNotConstructed = errors.New(
	"VerifyPaymentCommand must be created via NewVerifyPaymentCommand constructor",
)

// VerifyPaymentCommand asks the gateway for the outcome of a checkout
// session and reconciles the local payment with it.
type VerifyPaymentCommand struct { //nolint:recvcheck //using for validation
	reference string

	guard guard.ConstructorGuard
}

// NewVerifyPaymentCommand creates a verification command for the gateway
// reference returned at initialization.
func NewVerifyPaymentCommand(reference string) (VerifyPaymentCommand, error) {
	if reference == "" {
		return VerifyPaymentCommand{}, errs.NewValueIsRequiredError("reference")
	}

	return VerifyPaymentCommand{
		reference: reference,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c VerifyPaymentCommand) Validate() error {
	return c.guard.Validate(ErrVerifyPaymentCommandIsNotConstructed)
}

func (c VerifyPaymentCommand) Reference() string { return c.reference }

// VerificationResult reports the settled state after reconciliation.
type VerificationResult struct {
	PaymentStatus payment.Status
	OrderStatus   order.Status
}

// VerifyPaymentCommandHandler settles a payment against the gateway's view
// of it. Verification is the single source of truth for payment state: the
// handler may run any number of times for the same reference and only the
// first conclusive outcome changes anything.
type VerifyPaymentCommandHandler struct {
	uowFactory PaymentUoWFactory
	gateway    ports.PaymentGateway
	effects    SideEffects
}

// NewVerifyPaymentCommandHandler creates a handler for payment verification.
func NewVerifyPaymentCommandHandler(
	uowFactory PaymentUoWFactory,
	gateway ports.PaymentGateway,
	effects SideEffects,
) VerifyPaymentCommandHandler {
	return VerifyPaymentCommandHandler{
		uowFactory: uowFactory,
		gateway:    gateway,
		effects:    effects,
	}
}

// Handle queries the gateway and applies the outcome to the payment and its
// order inside one transaction. An inconclusive gateway answer leaves both
// untouched so a later attempt can settle them.
func (h VerifyPaymentCommandHandler) Handle(ctx context.Context, cmd VerifyPaymentCommand) (VerificationResult, error) {
	if err := cmd.Validate(); err != nil {
		return VerificationResult{}, err
	}

	verification, err := h.gateway.Verify(ctx, cmd.Reference())
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues("upstream_error").Inc()

		return VerificationResult{}, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return VerificationResult{}, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	record, err := uow.PaymentRepository().GetByReference(ctx, cmd.Reference())
	if err != nil {
		return VerificationResult{}, err
	}
	aggregate, err := uow.OrderRepository().Get(ctx, record.OrderID())
	if err != nil {
		return VerificationResult{}, err
	}

	now := time.Now()

	var applied bool
	if verification.Succeeded {
		applied, err = record.MarkCompleted(verification.TransactionID, verification.RawResponse, now)
	} else {
		applied, err = record.MarkFailed(verification.FailureReason, verification.RawResponse, now)
	}
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues("rejected").Inc()

		return VerificationResult{}, err
	}

	if !applied {
		metrics.PaymentVerifications.WithLabelValues("replayed").Inc()

		return VerificationResult{PaymentStatus: record.Status(), OrderStatus: aggregate.Status()}, nil
	}

	if verification.Succeeded {
		err = aggregate.MarkPaid(now)
	} else {
		err = aggregate.MarkPaymentFailed()
	}
	if err != nil {
		return VerificationResult{}, err
	}

	if err = uow.PaymentRepository().Update(ctx, record); err != nil {
		return VerificationResult{}, err
	}
	if err = uow.OrderRepository().Update(ctx, aggregate); err != nil {
		var conflict *errs.ConflictError
		if errors.As(err, &conflict) {
			metrics.TransitionConflicts.Inc()
		}

		return VerificationResult{}, err
	}
	if err = uow.Commit(ctx); err != nil {
		return VerificationResult{}, err
	}

	if verification.Succeeded {
		metrics.PaymentVerifications.WithLabelValues("completed").Inc()
	} else {
		metrics.PaymentVerifications.WithLabelValues("failed").Inc()
	}

	h.effects.Apply(ctx, order.SystemActor, aggregate)

	return VerificationResult{PaymentStatus: record.Status(), OrderStatus: aggregate.Status()}, nil
}
