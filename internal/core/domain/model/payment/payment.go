package payment

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var (
	// ErrPaymentIsNotConstructed is returned when a Payment instance was not
	// created through NewPayment or RestorePayment.
	ErrPaymentIsNotConstructed = errors.New("Payment must be created via NewPayment or RestorePayment")

	// ErrReferenceIsRequired is returned when attempting to create a payment
	// without a gateway reference.
	ErrReferenceIsRequired = errs.NewValueIsRequiredError("reference")
)

// Payment is the aggregate root for one charge attempt against the external
// gateway. Its status is what makes verification and webhook handling
// idempotent: a side effect is applied only when the status actually moves,
// so re-verifying a settled reference is a no-op instead of a double credit.
type Payment struct {
	id      kernel.UUID
	orderID kernel.UUID

	amount   float64
	currency string
	gateway  string

	status Status

	// reference is the gateway-issued charge reference used for lookups
	// on verification and webhooks.
	reference     string
	transactionID string

	paidAt     *time.Time
	failedAt   *time.Time
	refundedAt *time.Time

	failureReason string
	refundReason  string

	// rawResponse keeps the gateway's last payload verbatim for audits.
	rawResponse []byte

	version int

	guard guard.ConstructorGuard
}

// NewPayment creates a Pending payment for an initialized charge.
func NewPayment(
	id kernel.UUID,
	orderID kernel.UUID,
	amount float64,
	currency string,
	gateway string,
	reference string,
) (*Payment, error) {
	p := &Payment{
		status: StatusPending,
		guard:  guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		p.setID(id),
		p.setOrderID(orderID),
		p.setAmount(amount),
		p.setCurrency(currency),
		p.setGateway(gateway),
		p.setReference(reference),
	); err != nil {
		return nil, err
	}

	return p, nil
}

// RestorePayment reconstructs a payment from persistence.
func RestorePayment(
	id kernel.UUID,
	orderID kernel.UUID,
	amount float64,
	currency string,
	gateway string,
	reference string,
	status Status,
	transactionID string,
	paidAt *time.Time,
	failedAt *time.Time,
	refundedAt *time.Time,
	failureReason string,
	refundReason string,
	rawResponse []byte,
	version int,
) (*Payment, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}
	if version < 0 {
		return nil, errs.NewVersionIsInvalidErrorWithCause("payment version",
			fmt.Errorf("%d is negative", version))
	}

	p := &Payment{
		status:        status,
		transactionID: transactionID,
		paidAt:        paidAt,
		failedAt:      failedAt,
		refundedAt:    refundedAt,
		failureReason: failureReason,
		refundReason:  refundReason,
		rawResponse:   rawResponse,
		version:       version,
		guard:         guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		p.setID(id),
		p.setOrderID(orderID),
		p.setAmount(amount),
		p.setCurrency(currency),
		p.setGateway(gateway),
		p.setReference(reference),
	); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate ensures the Payment instance was properly constructed.
func (p *Payment) Validate() error {
	if p == nil {
		return ErrPaymentIsNotConstructed
	}
	return p.guard.Validate(ErrPaymentIsNotConstructed)
}

func (p *Payment) ID() kernel.UUID        { return p.id }
func (p *Payment) OrderID() kernel.UUID   { return p.orderID }
func (p *Payment) Amount() float64        { return p.amount }
func (p *Payment) Currency() string       { return p.currency }
func (p *Payment) Gateway() string        { return p.gateway }
func (p *Payment) Status() Status         { return p.status }
func (p *Payment) Reference() string      { return p.reference }
func (p *Payment) TransactionID() string  { return p.transactionID }
func (p *Payment) PaidAt() *time.Time     { return p.paidAt }
func (p *Payment) FailedAt() *time.Time   { return p.failedAt }
func (p *Payment) RefundedAt() *time.Time { return p.refundedAt }
func (p *Payment) FailureReason() string  { return p.failureReason }
func (p *Payment) RefundReason() string   { return p.refundReason }
func (p *Payment) RawResponse() []byte    { return p.rawResponse }
func (p *Payment) Version() int           { return p.version }

// MarkCompleted records a gateway-confirmed charge.
//
// Returns:
//   - (true, nil) when the payment moved from Pending to Completed and the
//     caller must apply the order-side effects
//   - (false, nil) when the payment was already Completed or beyond; the
//     verification is a retry and side effects were applied before
//   - (false, error) when the payment is Failed or Cancelled
func (p *Payment) MarkCompleted(transactionID string, rawResponse []byte, now time.Time) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	switch p.status {
	case StatusCompleted, StatusRefundPending, StatusRefunded:
		return false, nil
	case StatusPending:
	default:
		return false, errs.NewInvalidOperationError("mark_completed",
			fmt.Sprintf("payment is %s", p.status))
	}

	p.status = StatusCompleted
	p.transactionID = transactionID
	p.rawResponse = rawResponse
	t := now
	p.paidAt = &t
	return true, nil
}

// MarkFailed records a gateway-reported failure.
//
// Returns (true, nil) when the payment moved to Failed; (false, nil) when
// the outcome was already recorded, including a stale failure report for a
// charge that has since completed.
func (p *Payment) MarkFailed(reason string, rawResponse []byte, now time.Time) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	switch p.status {
	case StatusFailed, StatusCompleted, StatusRefundPending, StatusRefunded:
		return false, nil
	case StatusPending:
	default:
		return false, errs.NewInvalidOperationError("mark_failed",
			fmt.Sprintf("payment is %s", p.status))
	}

	p.status = StatusFailed
	p.failureReason = reason
	p.rawResponse = rawResponse
	t := now
	p.failedAt = &t
	return true, nil
}

// RequestRefund moves a Completed payment to RefundPending after the gateway
// accepted the refund call. The gateway's later success webhook finalizes it.
func (p *Payment) RequestRefund(reason string) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if p.status != StatusCompleted {
		return errs.NewInvalidOperationError("request_refund",
			fmt.Sprintf("payment is %s, only Completed payments can be refunded", p.status))
	}

	p.status = StatusRefundPending
	p.refundReason = reason
	return nil
}

// MarkRefunded finalizes a refund. Accepted from RefundPending and, for
// gateway-initiated refunds, straight from Completed. Re-reporting a
// finished refund is a no-op.
func (p *Payment) MarkRefunded(rawResponse []byte, now time.Time) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	switch p.status {
	case StatusRefunded:
		return false, nil
	case StatusRefundPending, StatusCompleted:
	default:
		return false, errs.NewInvalidOperationError("mark_refunded",
			fmt.Sprintf("payment is %s", p.status))
	}

	p.status = StatusRefunded
	if rawResponse != nil {
		p.rawResponse = rawResponse
	}
	t := now
	p.refundedAt = &t
	return true, nil
}

// Cancel abandons a Pending charge that will never be verified.
func (p *Payment) Cancel() error {
	if err := p.Validate(); err != nil {
		return err
	}

	if p.status != StatusPending {
		return errs.NewInvalidOperationError("cancel",
			fmt.Sprintf("payment is %s, only Pending payments can be cancelled", p.status))
	}

	p.status = StatusCancelled
	return nil
}

func (p *Payment) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	p.id = id
	return nil
}

func (p *Payment) setOrderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	p.orderID = id
	return nil
}

func (p *Payment) setAmount(amount float64) error {
	if amount <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("amount is invalid",
			fmt.Errorf("%g is not positive", amount))
	}
	p.amount = amount
	return nil
}

func (p *Payment) setCurrency(currency string) error {
	if currency == "" {
		return errs.NewValueIsRequiredError("currency")
	}
	p.currency = currency
	return nil
}

func (p *Payment) setGateway(gateway string) error {
	if gateway == "" {
		return errs.NewValueIsRequiredError("gateway")
	}
	p.gateway = gateway
	return nil
}

func (p *Payment) setReference(reference string) error {
	if reference == "" {
		return ErrReferenceIsRequired
	}
	p.reference = reference
	return nil
}
