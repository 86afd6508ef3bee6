package commands

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrSubmitRatingCommandIsNotConstructed = errors.New(
	"SubmitRatingCommand must be created via NewSubmitRatingCommand constructor",
)

// SubmitRatingCommand represents a customer rating a delivered order.
// Range validation happens in the domain so the same rule guards every
// entry point.
type SubmitRatingCommand struct { //nolint:recvcheck //using for validation
	orderID  kernel.UUID
	actor    string
	rating   int
	feedback string

	guard guard.ConstructorGuard
}

// NewSubmitRatingCommand creates a rating command.
func NewSubmitRatingCommand(orderID kernel.UUID, actor string, rating int, feedback string) (SubmitRatingCommand, error) {
	if err := orderID.Validate(); err != nil {
		return SubmitRatingCommand{}, err
	}

	return SubmitRatingCommand{
		orderID:  orderID,
		actor:    actor,
		rating:   rating,
		feedback: feedback,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c SubmitRatingCommand) Validate() error {
	return c.guard.Validate(ErrSubmitRatingCommandIsNotConstructed)
}

func (c SubmitRatingCommand) OrderID() kernel.UUID { return c.orderID }
func (c SubmitRatingCommand) Actor() string        { return c.actor }
func (c SubmitRatingCommand) Rating() int          { return c.rating }
func (c SubmitRatingCommand) Feedback() string     { return c.feedback }

// SubmitRatingCommandHandler stores the rating on the order and folds it
// into the assigned rider's rolling average.
type SubmitRatingCommandHandler struct {
	uowFactory DispatchUoWFactory
	effects    SideEffects
}

// NewSubmitRatingCommandHandler creates a handler for rating submission.
func NewSubmitRatingCommandHandler(uowFactory DispatchUoWFactory, effects SideEffects) SubmitRatingCommandHandler {
	return SubmitRatingCommandHandler{
		uowFactory: uowFactory,
		effects:    effects,
	}
}

// Handle records the rating. The rider update shares the transaction so
// the order's rating and the rider's average never diverge.
func (h SubmitRatingCommandHandler) Handle(ctx context.Context, cmd SubmitRatingCommand) error {
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

	if err = aggregate.SubmitRating(cmd.Rating(), cmd.Feedback(), time.Now()); err != nil {
		return err
	}
	if err = uow.OrderRepository().Update(ctx, aggregate); err != nil {
		return err
	}

	if assignment := aggregate.Assignment(); assignment != nil {
		assigned, err := uow.RiderRepository().Get(ctx, assignment.RiderID)
		if err != nil {
			return err
		}
		if err = assigned.AddRating(cmd.Rating()); err != nil {
			return err
		}
		if err = uow.RiderRepository().Update(ctx, assigned); err != nil {
			return err
		}
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.effects.Apply(ctx, cmd.Actor(), aggregate)
	return nil
}
