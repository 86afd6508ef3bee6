package commands

import (
	"context"
	"errors"
	"log/slog"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/guard"
)

var (
	ErrBulkUpdateStatusCommandIsNotConstructed = errors.New(
		"BulkUpdateStatusCommand must be created via NewBulkUpdateStatusCommand constructor",
	)

	// ErrAllTransitionsFailed is returned when no order in the batch could
	// be transitioned.
	ErrAllTransitionsFailed = errors.New("all transitions in the batch failed")
)

// BulkUpdateStatusCommand transitions a batch of orders to the same status,
// such as restaurant staff marking several orders Preparing at once.
type BulkUpdateStatusCommand struct { //nolint:recvcheck //using for validation
	orderIDs []kernel.UUID
	toStatus order.Status
	actor    string
	note     string

	guard guard.ConstructorGuard
}

// NewBulkUpdateStatusCommand creates a batch transition command.
func NewBulkUpdateStatusCommand(orderIDs []kernel.UUID, toStatus order.Status, actor string, note string) (BulkUpdateStatusCommand, error) {
	if len(orderIDs) == 0 {
		return BulkUpdateStatusCommand{}, ErrNoOrdersInBatch
	}
	for _, id := range orderIDs {
		if err := id.Validate(); err != nil {
			return BulkUpdateStatusCommand{}, err
		}
	}
	if err := toStatus.Validate(); err != nil {
		return BulkUpdateStatusCommand{}, err
	}

	return BulkUpdateStatusCommand{
		orderIDs: orderIDs,
		toStatus: toStatus,
		actor:    actor,
		note:     note,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the command was created through the constructor.
func (c BulkUpdateStatusCommand) Validate() error {
	return c.guard.Validate(ErrBulkUpdateStatusCommandIsNotConstructed)
}

func (c BulkUpdateStatusCommand) OrderIDs() []kernel.UUID { return c.orderIDs }
func (c BulkUpdateStatusCommand) ToStatus() order.Status  { return c.toStatus }
func (c BulkUpdateStatusCommand) Actor() string           { return c.actor }
func (c BulkUpdateStatusCommand) Note() string            { return c.note }

// BulkUpdateStatusCommandHandler applies the transition per order with
// at-least-one-success semantics, each order in its own transaction.
type BulkUpdateStatusCommandHandler struct {
	update UpdateOrderStatusCommandHandler
	logger *slog.Logger
}

// NewBulkUpdateStatusCommandHandler creates a handler for batch
// transitions.
func NewBulkUpdateStatusCommandHandler(update UpdateOrderStatusCommandHandler, logger *slog.Logger) BulkUpdateStatusCommandHandler {
	return BulkUpdateStatusCommandHandler{
		update: update,
		logger: logger.With("component", "bulk_update_status"),
	}
}

// Handle transitions each order, logging and skipping per-order failures.
func (h BulkUpdateStatusCommandHandler) Handle(ctx context.Context, cmd BulkUpdateStatusCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	var succeeded int
	for _, orderID := range cmd.OrderIDs() {
		updateCmd, err := NewUpdateOrderStatusCommand(orderID, cmd.ToStatus(), cmd.Actor(), cmd.Note())
		if err != nil {
			h.logger.Warn("skipping order in batch", "order_id", orderID, "error", err)
			continue
		}
		if err = h.update.Handle(ctx, updateCmd); err != nil {
			h.logger.Warn("transition failed in batch",
				"order_id", orderID, "to_status", cmd.ToStatus(), "error", err)
			continue
		}
		succeeded++
	}

	if succeeded == 0 {
		return ErrAllTransitionsFailed
	}
	return nil
}
