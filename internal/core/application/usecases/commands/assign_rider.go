package commands

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
	"dispatch/internal/pkg/metrics"
)

var ErrAssignRiderCommandIsNotConstructed = errors.New(
	"AssignRiderCommand must be created via NewAssignRiderCommand constructor",
)

// AssignRiderCommand represents a request to bind a specific rider to a
// Ready order, either by an operator or by automatic dispatch.
type AssignRiderCommand struct { //nolint:recvcheck //using for validation
	orderID kernel.UUID
	riderID kernel.UUID
	actor   string

	guard guard.ConstructorGuard
}

// NewAssignRiderCommand creates an assignment command.
func NewAssignRiderCommand(orderID kernel.UUID, riderID kernel.UUID, actor string) (AssignRiderCommand, error) {
	cmd := AssignRiderCommand{
		actor: actor,
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		orderID.Validate(),
		riderID.Validate(),
	); err != nil {
		return AssignRiderCommand{}, err
	}
	cmd.orderID = orderID
	cmd.riderID = riderID

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c AssignRiderCommand) Validate() error {
	return c.guard.Validate(ErrAssignRiderCommandIsNotConstructed)
}

func (c AssignRiderCommand) OrderID() kernel.UUID { return c.orderID }
func (c AssignRiderCommand) RiderID() kernel.UUID { return c.riderID }
func (c AssignRiderCommand) Actor() string        { return c.actor }

// AssignRiderCommandHandler binds a rider to an order inside one
// transaction. The rider row is version-guarded, so two orders racing for
// the same rider can never both commit: the loser's rider Update fails
// with *errs.ConflictError and the caller re-queries for another rider.
type AssignRiderCommandHandler struct {
	uowFactory DispatchUoWFactory
	effects    SideEffects
}

// NewAssignRiderCommandHandler creates a handler for rider assignment.
func NewAssignRiderCommandHandler(uowFactory DispatchUoWFactory, effects SideEffects) AssignRiderCommandHandler {
	return AssignRiderCommandHandler{
		uowFactory: uowFactory,
		effects:    effects,
	}
}

// Handle binds the rider and moves the order on route.
func (h AssignRiderCommandHandler) Handle(ctx context.Context, cmd AssignRiderCommand) error {
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
	assigned, err := uow.RiderRepository().Get(ctx, cmd.RiderID())
	if err != nil {
		return err
	}

	now := time.Now()
	if err = assigned.BindOrder(aggregate.ID()); err != nil {
		return err
	}
	if err = aggregate.Assign(assigned.ID(), now); err != nil {
		return err
	}

	if err = uow.RiderRepository().Update(ctx, assigned); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			metrics.TransitionConflicts.Inc()
		}
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

	metrics.RiderAssignments.Inc()
	h.effects.Apply(ctx, cmd.Actor(), aggregate, assigned)
	return nil
}
