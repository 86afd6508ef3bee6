package order

import (
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not
	// created through NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder")
)

const (
	// RatingMin is the lowest accepted customer rating.
	RatingMin = 1
	// RatingMax is the highest accepted customer rating.
	RatingMax = 5

	// MaxAssignmentAttempts is the number of expired automatic assignments
	// tolerated before the order is flagged for manual intervention.
	MaxAssignmentAttempts = 3
)

// Assignment binds a rider to an order at a point in time. A nil *Assignment
// means the order is unassigned; rider and timestamp are always set together,
// which keeps the "rider set iff assigned_at set" invariant unrepresentable
// to violate.
type Assignment struct {
	RiderID    kernel.UUID
	AssignedAt time.Time
}

// Rating holds the customer's 1..5 score and optional feedback for a
// delivered order.
type Rating struct {
	Score    int
	Feedback string
}

// Order is the aggregate root of the delivery lifecycle. It owns the status
// state machine, the payment status mirror, rider assignment tracking, the
// two-party delivery confirmation flags, and the customer rating.
//
// Invariants:
//   - Status transitions follow the fixed graph in Status
//   - A rider is bound iff an assignment timestamp exists (Assignment value)
//   - A rating exists only when the order is Delivered
//   - Delivered is reached only after both confirmation flags are set
//
// All mutation records domain events; callers persist the aggregate and then
// hand Events() to the dispatcher.
type Order struct {
	id           kernel.UUID
	customerID   kernel.UUID
	restaurantID kernel.UUID

	status        Status
	paymentStatus PaymentStatus

	totalPrice      float64
	deliveryAddress string
	deliveryPoint   *kernel.GeoPoint

	assignment         *Assignment
	assignmentAttempts int
	requiresManual     bool

	acceptedAt *time.Time
	pickedUpAt *time.Time

	customerConfirmed bool
	riderConfirmed    bool

	rating *Rating

	version int

	events []kernel.DomainEvent

	guard guard.ConstructorGuard
}

// NewOrder creates a new order in Pending status with a Pending payment.
//
// Parameters:
//   - id: unique identifier (must be valid)
//   - customerID, restaurantID: owning parties (must be valid)
//   - deliveryAddress: free-text destination (must not be empty)
//   - deliveryPoint: optional destination coordinates
//   - totalPrice: order total (must not be negative)
func NewOrder(
	id kernel.UUID,
	customerID kernel.UUID,
	restaurantID kernel.UUID,
	deliveryAddress string,
	deliveryPoint *kernel.GeoPoint,
	totalPrice float64,
) (*Order, error) {
	o := &Order{
		status:        Pending,
		paymentStatus: PaymentPending,
		guard:         guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerID(customerID),
		o.setRestaurantID(restaurantID),
		o.setDeliveryAddress(deliveryAddress),
		o.setDeliveryPoint(deliveryPoint),
		o.setTotalPrice(totalPrice),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// RestoreOrder reconstructs an order from persistence without re-running the
// creation rules. Validation still rejects impossible field combinations.
func RestoreOrder(
	id kernel.UUID,
	customerID kernel.UUID,
	restaurantID kernel.UUID,
	deliveryAddress string,
	deliveryPoint *kernel.GeoPoint,
	totalPrice float64,
	status Status,
	paymentStatus PaymentStatus,
	assignment *Assignment,
	assignmentAttempts int,
	requiresManual bool,
	acceptedAt *time.Time,
	pickedUpAt *time.Time,
	customerConfirmed bool,
	riderConfirmed bool,
	rating *Rating,
	version int,
) (*Order, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}
	if err := paymentStatus.Validate(); err != nil {
		return nil, err
	}
	if rating != nil && status != Delivered {
		return nil, errs.NewValueIsInvalidErrorWithCause("rating",
			fmt.Errorf("rating exists but status is %s", status))
	}
	if version < 0 {
		return nil, errs.NewVersionIsInvalidErrorWithCause("order version",
			fmt.Errorf("%d is negative", version))
	}

	o := &Order{
		status:             status,
		paymentStatus:      paymentStatus,
		assignment:         assignment,
		assignmentAttempts: assignmentAttempts,
		requiresManual:     requiresManual,
		acceptedAt:         acceptedAt,
		pickedUpAt:         pickedUpAt,
		customerConfirmed:  customerConfirmed,
		riderConfirmed:     riderConfirmed,
		rating:             rating,
		version:            version,
		guard:              guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(id),
		o.setCustomerID(customerID),
		o.setRestaurantID(restaurantID),
		o.setDeliveryAddress(deliveryAddress),
		o.setDeliveryPoint(deliveryPoint),
		o.setTotalPrice(totalPrice),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the Order instance was properly constructed.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}
	return o.guard.Validate(ErrOrderIsNotConstructed)
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID                { return o.id }
func (o *Order) CustomerID() kernel.UUID        { return o.customerID }
func (o *Order) RestaurantID() kernel.UUID      { return o.restaurantID }
func (o *Order) Status() Status                 { return o.status }
func (o *Order) PaymentStatus() PaymentStatus   { return o.paymentStatus }
func (o *Order) TotalPrice() float64            { return o.totalPrice }
func (o *Order) DeliveryAddress() string        { return o.deliveryAddress }
func (o *Order) DeliveryPoint() *kernel.GeoPoint { return o.deliveryPoint }
func (o *Order) Assignment() *Assignment        { return o.assignment }
func (o *Order) AssignmentAttempts() int        { return o.assignmentAttempts }
func (o *Order) RequiresManualAssignment() bool { return o.requiresManual }
func (o *Order) AcceptedAt() *time.Time         { return o.acceptedAt }
func (o *Order) PickedUpAt() *time.Time         { return o.pickedUpAt }
func (o *Order) CustomerConfirmed() bool        { return o.customerConfirmed }
func (o *Order) RiderConfirmed() bool           { return o.riderConfirmed }
func (o *Order) Rating() *Rating                { return o.rating }
func (o *Order) Version() int                   { return o.version }

// Events returns the domain events recorded since construction or the last
// ClearEvents call, in the order they occurred.
func (o *Order) Events() []kernel.DomainEvent {
	return o.events
}

// ClearEvents drops accumulated events after they have been dispatched.
func (o *Order) ClearEvents() {
	o.events = nil
}

// TransitionTo moves the order along the transition graph.
//
// On success the relevant timestamp is stamped:
//   - Accepted stamps accepted_at
//   - Ready stamps picked_up_at if not already set
//   - Delivered stamps picked_up_at as a fallback if still unset
//
// Transitioning a Paid order into Cancelled additionally records a
// RefundRequestedEvent so the reconciler returns the charge.
//
// Returns *errs.InvalidTransitionError if to is not an allowed successor of
// the current status; self-transitions always fail, which rejects duplicate
// webhook deliveries.
func (o *Order) TransitionTo(to Status, note string, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}

	newStatus, err := o.status.TransitionTo(to)
	if err != nil {
		return err
	}

	from := o.status
	o.status = newStatus

	switch newStatus {
	case Accepted:
		t := now
		o.acceptedAt = &t
	case Ready:
		if o.pickedUpAt == nil {
			t := now
			o.pickedUpAt = &t
		}
	case Delivered:
		if o.pickedUpAt == nil {
			t := now
			o.pickedUpAt = &t
		}
	}

	o.recordEvent(StatusUpdatedEvent{
		OrderID:    o.id,
		FromStatus: from,
		ToStatus:   newStatus,
		Note:       note,
		OccurredAt: now,
	})

	if newStatus == Cancelled && o.paymentStatus == PaymentPaid {
		o.recordEvent(RefundRequestedEvent{
			OrderID:    o.id,
			Amount:     o.totalPrice,
			OccurredAt: now,
		})
	}

	return nil
}

// Cancel cancels the order with an optional free-text reason.
// Only Pending, Accepted and Ready orders can be cancelled.
func (o *Order) Cancel(reason string, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}

	if !o.status.IsCancellable() {
		return errs.NewInvalidOperationError("cancel",
			fmt.Sprintf("order cannot be cancelled in status %s", o.status))
	}

	note := "Order cancelled"
	if reason != "" {
		note = note + ": " + reason
	}

	return o.TransitionTo(Cancelled, note, now)
}

// Assign binds a rider to a Ready order and moves it to OnRoute.
// A successful assignment resets the failed-attempt counter and clears the
// manual-assignment flag.
func (o *Order) Assign(riderID kernel.UUID, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := riderID.Validate(); err != nil {
		return err
	}

	if o.status != Ready {
		return errs.NewInvalidOperationError("assign",
			fmt.Sprintf("order is %s, only Ready orders can be assigned", o.status))
	}
	if o.assignment != nil && o.assignment.RiderID.IsEqual(riderID) {
		return errs.NewInvalidOperationError("assign",
			"rider is already assigned to this order")
	}

	o.assignment = &Assignment{RiderID: riderID, AssignedAt: now}
	o.assignmentAttempts = 0
	o.requiresManual = false

	if err := o.TransitionTo(OnRoute, "Rider assigned", now); err != nil {
		// Roll the binding back; the status check above makes this
		// unreachable unless the graph changes.
		o.assignment = nil
		return err
	}

	o.recordEvent(RiderAssignedEvent{
		OrderID:    o.id,
		RiderID:    riderID,
		OccurredAt: now,
	})

	return nil
}

// AssignmentExpired reports whether an OnRoute assignment has outlived the
// window without reaching the delivery rendezvous. A pure predicate; the
// periodic sweep acts on it.
func (o *Order) AssignmentExpired(window time.Duration, now time.Time) bool {
	if o.assignment == nil || o.status != OnRoute {
		return false
	}
	return now.Sub(o.assignment.AssignedAt) > window
}

// ExpireAssignment unbinds the rider after a timed-out assignment and counts
// the failed attempt. The order returns to Ready so the next sweep can
// re-dispatch it; once attempts reach MaxAssignmentAttempts the order is
// flagged for manual assignment and an AssignmentFailedEvent is recorded.
func (o *Order) ExpireAssignment(now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.assignment == nil {
		return errs.NewInvalidOperationError("expire_assignment", "order has no assignment")
	}
	if o.status != OnRoute {
		return errs.NewInvalidOperationError("expire_assignment",
			fmt.Sprintf("order is %s, only OnRoute assignments expire", o.status))
	}

	o.assignment = nil
	o.assignmentAttempts++
	o.status = Ready

	o.recordEvent(StatusUpdatedEvent{
		OrderID:    o.id,
		FromStatus: OnRoute,
		ToStatus:   Ready,
		Note:       fmt.Sprintf("Assignment expired (attempt %d)", o.assignmentAttempts),
		OccurredAt: now,
	})

	o.escalateIfExhausted(now)
	return nil
}

// RecordDispatchFailure counts a dispatch pass that found no eligible rider
// for a Ready order. Enough consecutive failures flag the order for manual
// assignment.
func (o *Order) RecordDispatchFailure(now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.status != Ready || o.assignment != nil {
		return errs.NewInvalidOperationError("record_dispatch_failure",
			"order is not awaiting dispatch")
	}

	o.assignmentAttempts++
	o.escalateIfExhausted(now)
	return nil
}

func (o *Order) escalateIfExhausted(now time.Time) {
	if o.assignmentAttempts < MaxAssignmentAttempts || o.requiresManual {
		return
	}
	o.requiresManual = true
	o.recordEvent(AssignmentFailedEvent{
		OrderID:    o.id,
		Attempts:   o.assignmentAttempts,
		OccurredAt: now,
	})
}

// ConfirmByCustomer sets the customer's half of the delivery rendezvous.
// Re-confirming is a no-op. When both flags are set the order transitions
// to Delivered and the chat-clear instruction is recorded.
func (o *Order) ConfirmByCustomer(now time.Time) error {
	return o.confirm(&o.customerConfirmed, now)
}

// ConfirmByRider sets the rider's half of the delivery rendezvous.
// Re-confirming is a no-op. When both flags are set the order transitions
// to Delivered and the chat-clear instruction is recorded.
func (o *Order) ConfirmByRider(now time.Time) error {
	return o.confirm(&o.riderConfirmed, now)
}

func (o *Order) confirm(flag *bool, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}

	if o.status != AwaitingConfirmation {
		return errs.NewInvalidOperationError("confirm_delivery",
			fmt.Sprintf("order is %s, not awaiting confirmation", o.status))
	}

	if *flag {
		return nil
	}
	*flag = true

	if o.customerConfirmed && o.riderConfirmed {
		if err := o.TransitionTo(Delivered, "Delivery confirmed by both parties", now); err != nil {
			return err
		}

		var riderID *kernel.UUID
		if o.assignment != nil {
			id := o.assignment.RiderID
			riderID = &id
		}
		o.recordEvent(DeliveredEvent{
			OrderID:     o.id,
			RiderID:     riderID,
			DeliveredAt: now,
		})
		o.recordEvent(ChatClearRequestedEvent{
			OrderID:    o.id,
			OccurredAt: now,
		})
	}

	return nil
}

// SubmitRating records the customer's score and feedback.
// Only delivered orders can be rated; the score must be within
// [RatingMin, RatingMax].
func (o *Order) SubmitRating(score int, feedback string, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}

	if o.status != Delivered {
		return errs.NewInvalidOperationError("submit_rating",
			"only delivered orders can be rated")
	}
	if score < RatingMin || score > RatingMax {
		return errs.NewValueIsOutOfRangeError("rating", score, RatingMin, RatingMax)
	}

	o.rating = &Rating{Score: score, Feedback: feedback}
	o.recordEvent(RatedEvent{
		OrderID:    o.id,
		Rating:     score,
		OccurredAt: now,
	})

	return nil
}

// MarkPaid records a confirmed charge. A Pending order advances to
// Accepted; an order already past Pending keeps its status, which makes
// repeated verification of the same reference harmless.
func (o *Order) MarkPaid(now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}

	o.paymentStatus = PaymentPaid

	if o.status == Pending {
		return o.TransitionTo(Accepted, "Payment confirmed", now)
	}
	return nil
}

// MarkPaymentFailed records a failed charge. The order status is untouched:
// a failed payment does not auto-cancel the order.
func (o *Order) MarkPaymentFailed() error {
	if err := o.Validate(); err != nil {
		return err
	}

	o.paymentStatus = PaymentFailed
	return nil
}

// MarkRefunded records a finalized refund of a previously paid charge.
func (o *Order) MarkRefunded() error {
	if err := o.Validate(); err != nil {
		return err
	}

	if o.paymentStatus != PaymentPaid {
		return errs.NewInvalidOperationError("mark_refunded",
			fmt.Sprintf("payment status is %s, not Paid", o.paymentStatus))
	}

	o.paymentStatus = PaymentRefunded
	return nil
}

// CanBeDeleted reports whether the order may be soft-deleted.
// Only Pending and Cancelled orders qualify.
func (o *Order) CanBeDeleted() bool {
	return o.status == Pending || o.status == Cancelled
}

func (o *Order) recordEvent(event kernel.DomainEvent) {
	o.events = append(o.events, event)
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setCustomerID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.customerID = id
	return nil
}

func (o *Order) setRestaurantID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.restaurantID = id
	return nil
}

func (o *Order) setDeliveryAddress(address string) error {
	if address == "" {
		return errs.NewValueIsRequiredError("delivery address")
	}
	o.deliveryAddress = address
	return nil
}

func (o *Order) setDeliveryPoint(point *kernel.GeoPoint) error {
	if point != nil {
		if err := point.Validate(); err != nil {
			return err
		}
	}
	o.deliveryPoint = point
	return nil
}

func (o *Order) setTotalPrice(totalPrice float64) error {
	if totalPrice < 0 {
		return errs.NewValueIsInvalidErrorWithCause("total price is invalid",
			fmt.Errorf("%g is negative", totalPrice))
	}
	o.totalPrice = totalPrice
	return nil
}
