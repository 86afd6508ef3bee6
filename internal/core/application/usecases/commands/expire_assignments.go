package commands

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/metrics"
)

// ExpireAssignmentsCommandHandler sweeps orders whose rider accepted the
// job but never picked it up within the assignment window. Each expiry
// frees the rider, puts the order back in the dispatch pool and counts an
// attempt against it.
type ExpireAssignmentsCommandHandler struct {
	uowFactory DispatchUoWFactory
	window     time.Duration
	effects    SideEffects
	logger     *slog.Logger
}

// NewExpireAssignmentsCommandHandler creates a sweep handler for the given
// assignment window.
func NewExpireAssignmentsCommandHandler(
	uowFactory DispatchUoWFactory,
	window time.Duration,
	effects SideEffects,
	logger *slog.Logger,
) ExpireAssignmentsCommandHandler {
	return ExpireAssignmentsCommandHandler{
		uowFactory: uowFactory,
		window:     window,
		effects:    effects,
		logger:     logger.With("component", "assignment_sweep"),
	}
}

// Handle expires every overdue assignment and returns how many it expired.
// Each order gets its own transaction so one stuck row cannot block the
// rest of the sweep.
func (h ExpireAssignmentsCommandHandler) Handle(ctx context.Context) (int, error) {
	now := time.Now()

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	overdue, err := uow.OrderRepository().GetAllAssignedBefore(ctx, now.Add(-h.window))
	_ = uow.Rollback(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, stale := range overdue {
		if err := h.expireOne(ctx, stale.ID(), now); err != nil {
			h.logger.Warn("failed to expire assignment",
				"order_id", stale.ID().String(), "error", err)

			continue
		}
		expired++
	}

	return expired, nil
}

func (h ExpireAssignmentsCommandHandler) expireOne(ctx context.Context, orderID kernel.UUID, now time.Time) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	aggregate, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return err
	}
	// Re-check under the transaction: the rider may have picked up the
	// order between the listing and now.
	if !aggregate.AssignmentExpired(h.window, now) {
		return nil
	}

	riderID := aggregate.Assignment().RiderID
	escalatedBefore := aggregate.RequiresManualAssignment()

	if err = aggregate.ExpireAssignment(now); err != nil {
		return err
	}

	courier, err := uow.RiderRepository().Get(ctx, riderID)
	if err != nil {
		return err
	}
	if err = courier.ReleaseOrder(); err != nil {
		return err
	}

	if err = uow.RiderRepository().Update(ctx, courier); err != nil {
		return err
	}
	if err = uow.OrderRepository().Update(ctx, aggregate); err != nil {
		return err
	}
	if err = uow.Commit(ctx); err != nil {
		return err
	}

	metrics.AssignmentExpiries.Inc()
	if !escalatedBefore && aggregate.RequiresManualAssignment() {
		metrics.AssignmentEscalations.Inc()
		h.logger.Warn("order escalated to manual assignment",
			"order_id", aggregate.ID().String(),
			"attempts", aggregate.AssignmentAttempts())
	}

	h.effects.Apply(ctx, order.SystemActor, aggregate, courier)

	return nil
}
