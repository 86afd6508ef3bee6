package commands

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
	"dispatch/internal/pkg/metrics"
)

var ErrConfirmDeliveryCommandIsNotConstructed = errors.New(
	"ConfirmDeliveryCommand must be created via NewConfirmDeliveryCommand constructor",
)

// ConfirmingParty identifies which side of the handover is confirming.
type ConfirmingParty int

const (
	// PartyUnknown represents an invalid party.
	PartyUnknown ConfirmingParty = iota

	// PartyCustomer is the customer receiving the order.
	PartyCustomer

	// PartyRider is the rider handing it over.
	PartyRider
)

// Validate checks if the party is one of the defined values.
func (p ConfirmingParty) Validate() error {
	if p != PartyCustomer && p != PartyRider {
		return errs.NewValueIsInvalidError("confirming party")
	}
	return nil
}

// ConfirmDeliveryCommand represents one side of the delivery rendezvous.
// Neither party can close the order alone; the second confirmation
// delivers it.
type ConfirmDeliveryCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	party   ConfirmingParty
	actor   string

	guard guard.ConstructorGuard
}

// NewConfirmDeliveryCommand creates a confirmation command for one party.
func NewConfirmDeliveryCommand(orderID kernel.UUID, party ConfirmingParty, actor string) (ConfirmDeliveryCommand, error) {
	if err := orderID.Validate(); err != nil {
		return ConfirmDeliveryCommand{}, err
	}
	if err := party.Validate(); err != nil {
		return ConfirmDeliveryCommand{}, err
	}

	return ConfirmDeliveryCommand{
		orderID: orderID,
		party:   party,
		actor:   actor,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c ConfirmDeliveryCommand) Validate() error {
	return c.guard.Validate(ErrConfirmDeliveryCommandIsNotConstructed)
}

func (c ConfirmDeliveryCommand) OrderID() kernel.UUID   { return c.orderID }
func (c ConfirmDeliveryCommand) Party() ConfirmingParty { return c.party }
func (c ConfirmDeliveryCommand) Actor() string          { return c.actor }

// ConfirmDeliveryCommandHandler records confirmation flags and, when both
// are set, completes the delivery and frees the rider.
type ConfirmDeliveryCommandHandler struct {
	uowFactory DispatchUoWFactory
	effects    SideEffects
}

// NewConfirmDeliveryCommandHandler creates a handler for delivery
// confirmation.
func NewConfirmDeliveryCommandHandler(uowFactory DispatchUoWFactory, effects SideEffects) ConfirmDeliveryCommandHandler {
	return ConfirmDeliveryCommandHandler{
		uowFactory: uowFactory,
		effects:    effects,
	}
}

// Handle sets the party's flag. Re-confirming is a no-op, not an error.
// When the order reaches Delivered the assigned rider is released in the
// same transaction.
func (h ConfirmDeliveryCommandHandler) Handle(ctx context.Context, cmd ConfirmDeliveryCommand) error {
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

	aggregate, err := uow.OrderRepository().Get(ctx, cmd.OrderID())
	if err != nil {
		return err
	}

	now := time.Now()
	switch cmd.Party() {
	case PartyCustomer:
		err = aggregate.ConfirmByCustomer(now)
	case PartyRider:
		err = aggregate.ConfirmByRider(now)
	}
	if err != nil {
		return err
	}

	carriers := []eventCarrier{aggregate}
	if aggregate.Status() == order.Delivered && aggregate.Assignment() != nil {
		assigned, err := uow.RiderRepository().Get(ctx, aggregate.Assignment().RiderID)
		if err != nil {
			return err
		}
		if err = assigned.ReleaseOrder(); err != nil {
			return err
		}
		if err = uow.RiderRepository().Update(ctx, assigned); err != nil {
			return err
		}
		carriers = append(carriers, assigned)
	}

	if err = uow.OrderRepository().Update(ctx, aggregate); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			metrics.TransitionConflicts.Inc()
		}
		return err
	}
	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.effects.Apply(ctx, cmd.Actor(), carriers...)
	return nil
}
