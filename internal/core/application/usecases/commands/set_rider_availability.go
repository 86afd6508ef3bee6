package commands

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrSetRiderAvailabilityCommandIsNotConstructed = errors.New(
	"SetRiderAvailabilityCommand must be created via NewSetRiderAvailabilityCommand constructor",
)

// SetRiderAvailabilityCommand represents a rider going online or offline.
type SetRiderAvailabilityCommand struct { //nolint:recvcheck //using for validation
	riderID kernel.UUID
	online  bool

	guard guard.ConstructorGuard
}

// NewSetRiderAvailabilityCommand creates an availability toggle command.
func NewSetRiderAvailabilityCommand(riderID kernel.UUID, online bool) (SetRiderAvailabilityCommand, error) {
	if err := riderID.Validate(); err != nil {
		return SetRiderAvailabilityCommand{}, err
	}

	return SetRiderAvailabilityCommand{
		riderID: riderID,
		online:  online,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c SetRiderAvailabilityCommand) Validate() error {
	return c.guard.Validate(ErrSetRiderAvailabilityCommandIsNotConstructed)
}

func (c SetRiderAvailabilityCommand) RiderID() kernel.UUID { return c.riderID }
func (c SetRiderAvailabilityCommand) Online() bool         { return c.online }

// SetRiderAvailabilityCommandHandler toggles a rider's online flag.
// Going offline keeps the last known position so the rider reappears with
// history intact.
type SetRiderAvailabilityCommandHandler struct {
	uowFactory RiderUoWFactory
	effects    SideEffects
}

// NewSetRiderAvailabilityCommandHandler creates a handler for availability
// toggles.
func NewSetRiderAvailabilityCommandHandler(uowFactory RiderUoWFactory, effects SideEffects) SetRiderAvailabilityCommandHandler {
	return SetRiderAvailabilityCommandHandler{
		uowFactory: uowFactory,
		effects:    effects,
	}
}

// Handle applies the toggle. Setting the current value again commits
// nothing and is not an error.
func (h SetRiderAvailabilityCommandHandler) Handle(ctx context.Context, cmd SetRiderAvailabilityCommand) error {
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

	aggregate, err := uow.RiderRepository().Get(ctx, cmd.RiderID())
	if err != nil {
		return err
	}

	if err = aggregate.SetOnline(cmd.Online(), time.Now()); err != nil {
		return err
	}
	if len(aggregate.Events()) == 0 {
		return nil
	}

	if err = uow.RiderRepository().Update(ctx, aggregate); err != nil {
		return err
	}
	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.effects.Apply(ctx, aggregate.ID().String(), aggregate)
	return nil
}
