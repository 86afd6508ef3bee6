package commands

import (
	"context"
	"errors"
	"log/slog"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var (
	ErrBulkAssignRidersCommandIsNotConstructed = errors.New(
		"BulkAssignRidersCommand must be created via NewBulkAssignRidersCommand constructor",
	)
	ErrNoOrdersInBatch = errors.New("at least one order id is required")

	// ErrAllAssignmentsFailed is returned when not a single order in the
	// batch could be assigned.
	ErrAllAssignmentsFailed = errors.New("all assignments in the batch failed")
)

// BulkAssignRidersCommand represents an operator assigning one rider to a
// batch of orders, typically after manual-assignment escalations.
type BulkAssignRidersCommand struct { //nolint:recvcheck //using for validation
	orderIDs []kernel.UUID
	riderID  kernel.UUID
	actor    string

	guard guard.ConstructorGuard
}

// NewBulkAssignRidersCommand creates a batch assignment command.
func NewBulkAssignRidersCommand(orderIDs []kernel.UUID, riderID kernel.UUID, actor string) (BulkAssignRidersCommand, error) {
	if len(orderIDs) == 0 {
		return BulkAssignRidersCommand{}, ErrNoOrdersInBatch
	}
	for _, id := range orderIDs {
		if err := id.Validate(); err != nil {
			return BulkAssignRidersCommand{}, err
		}
	}
	if err := riderID.Validate(); err != nil {
		return BulkAssignRidersCommand{}, err
	}

	return BulkAssignRidersCommand{
		orderIDs: orderIDs,
		riderID:  riderID,
		actor:    actor,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c BulkAssignRidersCommand) Validate() error {
	return c.guard.Validate(ErrBulkAssignRidersCommandIsNotConstructed)
}

func (c BulkAssignRidersCommand) OrderIDs() []kernel.UUID { return c.orderIDs }
func (c BulkAssignRidersCommand) RiderID() kernel.UUID    { return c.riderID }
func (c BulkAssignRidersCommand) Actor() string           { return c.actor }

// BulkAssignRidersCommandHandler applies assignment per order with
// at-least-one-success semantics: individual failures are logged and do
// not abort the batch.
type BulkAssignRidersCommandHandler struct {
	uowFactory DispatchUoWFactory
	assign     AssignRiderCommandHandler
	logger     *slog.Logger
}

// NewBulkAssignRidersCommandHandler creates a handler for batch assignment.
func NewBulkAssignRidersCommandHandler(
	uowFactory DispatchUoWFactory,
	assign AssignRiderCommandHandler,
	logger *slog.Logger,
) BulkAssignRidersCommandHandler {
	return BulkAssignRidersCommandHandler{
		uowFactory: uowFactory,
		assign:     assign,
		logger:     logger.With("component", "bulk_assign"),
	}
}

// Handle validates the rider once, then assigns each order in its own
// transaction. A batch where every order failed returns
// ErrAllAssignmentsFailed.
func (h BulkAssignRidersCommandHandler) Handle(ctx context.Context, cmd BulkAssignRidersCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	rider, err := uow.RiderRepository().Get(ctx, cmd.RiderID())
	_ = uow.Rollback(ctx)
	if err != nil {
		return err
	}
	if err = rider.Validate(); err != nil {
		return err
	}

	var succeeded int
	for _, orderID := range cmd.OrderIDs() {
		assignCmd, err := NewAssignRiderCommand(orderID, cmd.RiderID(), cmd.Actor())
		if err != nil {
			h.logger.Warn("skipping order in batch", "order_id", orderID, "error", err)
			continue
		}
		if err = h.assign.Handle(ctx, assignCmd); err != nil {
			h.logger.Warn("assignment failed in batch",
				"order_id", orderID, "rider_id", cmd.RiderID(), "error", err)
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		return ErrAllAssignmentsFailed
	}
	return nil
}
