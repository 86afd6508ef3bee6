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

var ErrUpdateOrderStatusCommandIsNotConstructed = errors.New(
	"UpdateOrderStatusCommand must be created via NewUpdateOrderStatusCommand constructor",
)

// UpdateOrderStatusCommand represents a request to move an order along its
// lifecycle: restaurant staff accepting, preparing, marking ready, a rider
// declaring arrival.
type UpdateOrderStatusCommand struct { //nolint:recvcheck //using for validation
	orderID  kernel.UUID
	toStatus order.Status
	actor    string
	note     string

	guard guard.ConstructorGuard
}

// NewUpdateOrderStatusCommand creates a status transition command. The
// actor identifies who triggered it; empty means the system did.
func NewUpdateOrderStatusCommand(orderID kernel.UUID, toStatus order.Status, actor string, note string) (UpdateOrderStatusCommand, error) {
	cmd := UpdateOrderStatusCommand{
		actor: actor,
		note:  note,
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setToStatus(toStatus),
	); err != nil {
		return UpdateOrderStatusCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c UpdateOrderStatusCommand) Validate() error {
	return c.guard.Validate(ErrUpdateOrderStatusCommandIsNotConstructed)
}

func (c UpdateOrderStatusCommand) OrderID() kernel.UUID   { return c.orderID }
func (c UpdateOrderStatusCommand) ToStatus() order.Status { return c.toStatus }
func (c UpdateOrderStatusCommand) Actor() string          { return c.actor }
func (c UpdateOrderStatusCommand) Note() string           { return c.note }

func (c *UpdateOrderStatusCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	c.orderID = orderID
	return nil
}

func (c *UpdateOrderStatusCommand) setToStatus(toStatus order.Status) error {
	if err := toStatus.Validate(); err != nil {
		return err
	}
	c.toStatus = toStatus
	return nil
}

// UpdateOrderStatusCommandHandler executes status transitions under
// optimistic concurrency: of two concurrent transitions from the same prior
// state, exactly one commits and the other returns *errs.ConflictError.
type UpdateOrderStatusCommandHandler struct {
	uowFactory OrderUoWFactory
	effects    SideEffects
}

// NewUpdateOrderStatusCommandHandler creates a handler for status
// transitions.
func NewUpdateOrderStatusCommandHandler(uowFactory OrderUoWFactory, effects SideEffects) UpdateOrderStatusCommandHandler {
	return UpdateOrderStatusCommandHandler{
		uowFactory: uowFactory,
		effects:    effects,
	}
}

// Handle loads the order, applies the transition and persists it.
func (h UpdateOrderStatusCommandHandler) Handle(ctx context.Context, cmd UpdateOrderStatusCommand) error {
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

	if err = aggregate.TransitionTo(cmd.ToStatus(), cmd.Note(), time.Now()); err != nil {
		return err
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

	h.effects.Apply(ctx, cmd.Actor(), aggregate)
	return nil
}
