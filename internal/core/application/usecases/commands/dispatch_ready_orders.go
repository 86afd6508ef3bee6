package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/pkg/metrics"
)

// DispatchReadyOrdersCommandHandler runs the automatic dispatch pass: every
// Ready unassigned order gets the nearest eligible rider, and orders nobody
// can serve accumulate failed attempts until they escalate to manual
// assignment.
type DispatchReadyOrdersCommandHandler struct {
	uowFactory DispatchUoWFactory
	dispatcher services.Dispatcher
	effects    SideEffects
	logger     *slog.Logger
}

// NewDispatchReadyOrdersCommandHandler creates a dispatch pass handler.
func NewDispatchReadyOrdersCommandHandler(
	uowFactory DispatchUoWFactory,
	dispatcher services.Dispatcher,
	effects SideEffects,
	logger *slog.Logger,
) DispatchReadyOrdersCommandHandler {
	return DispatchReadyOrdersCommandHandler{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		effects:    effects,
		logger:     logger.With("component", "dispatch_pass"),
	}
}

// Handle dispatches every Ready unassigned order and returns how many got
// a rider. Each order runs in its own transaction with a fresh view of the
// rider pool, so an earlier binding in the pass never double-books a rider.
func (h DispatchReadyOrdersCommandHandler) Handle(ctx context.Context) (int, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	pending, err := uow.OrderRepository().GetAllReadyUnassigned(ctx)
	_ = uow.Rollback(ctx)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, candidate := range pending {
		ok, err := h.dispatchOne(ctx, candidate.ID())
		if err != nil {
			h.logger.Warn("dispatch pass failed for order",
				"order_id", candidate.ID().String(), "error", err)

			continue
		}
		if ok {
			assigned++
		}
	}

	return assigned, nil
}

func (h DispatchReadyOrdersCommandHandler) dispatchOne(ctx context.Context, orderID kernel.UUID) (bool, error) {
	now := time.Now()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	aggregate, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	// The order may have been assigned, cancelled or escalated since the
	// listing.
	if aggregate.Status() != order.Ready || aggregate.Assignment() != nil ||
		aggregate.RequiresManualAssignment() {
		return false, nil
	}

	riders, err := uow.RiderRepository().GetAllOnline(ctx)
	if err != nil {
		return false, err
	}

	courier, err := h.dispatcher.Dispatch(aggregate, riders, now)
	if err != nil {
		if !errors.Is(err, services.ErrRiderNotFound) {
			return false, err
		}

		return false, h.recordFailure(ctx, uow, aggregate, now)
	}

	if err = uow.RiderRepository().Update(ctx, courier); err != nil {
		return false, err
	}
	if err = uow.OrderRepository().Update(ctx, aggregate); err != nil {
		return false, err
	}
	if err = uow.Commit(ctx); err != nil {
		return false, err
	}

	metrics.RiderAssignments.Inc()
	h.effects.Apply(ctx, order.SystemActor, aggregate, courier)

	return true, nil
}

// recordFailure counts a dispatch pass that found no rider for the order,
// escalating to manual assignment once the attempts run out.
func (h DispatchReadyOrdersCommandHandler) recordFailure(
	ctx context.Context, uow DispatchUoW, aggregate *order.Order, now time.Time,
) error {
	escalatedBefore := aggregate.RequiresManualAssignment()

	if err := aggregate.RecordDispatchFailure(now); err != nil {
		return err
	}
	if err := uow.OrderRepository().Update(ctx, aggregate); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}

	if !escalatedBefore && aggregate.RequiresManualAssignment() {
		metrics.AssignmentEscalations.Inc()
		h.logger.Warn("order escalated to manual assignment",
			"order_id", aggregate.ID().String(),
			"attempts", aggregate.AssignmentAttempts())
	}

	h.effects.Apply(ctx, order.SystemActor, aggregate)

	return nil
}
