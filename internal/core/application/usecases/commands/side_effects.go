package commands

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/metrics"
)

// eventCarrier is the slice of an aggregate that side-effect processing
// needs: its accumulated events and the ability to drop them once handled.
type eventCarrier interface {
	Events() []kernel.DomainEvent
	ClearEvents()
}

// SideEffects applies the post-commit bookkeeping shared by command
// handlers: appending status log records, publishing domain events, and
// counting transitions.
//
// Everything here runs after the transaction committed. The audit trail is
// advisory: a failed log append is logged and swallowed, never undoing the
// committed state change. The status log repository passed here must not be
// bound to a transaction.
type SideEffects struct {
	statusLogs ports.StatusLogRepository
	publisher  ports.EventPublisher
	logger     *slog.Logger
}

// NewSideEffects wires the post-commit pipeline used by command handlers.
func NewSideEffects(statusLogs ports.StatusLogRepository, publisher ports.EventPublisher, logger *slog.Logger) SideEffects {
	return SideEffects{
		statusLogs: statusLogs,
		publisher:  publisher,
		logger:     logger.With("component", "side_effects"),
	}
}

// Apply drains events from the given aggregates in order, appends a status
// log record for every committed transition under the given actor, and
// publishes the full batch.
func (s SideEffects) Apply(ctx context.Context, actor string, carriers ...eventCarrier) {
	var events []kernel.DomainEvent
	for _, carrier := range carriers {
		events = append(events, carrier.Events()...)
		carrier.ClearEvents()
	}
	if len(events) == 0 {
		return
	}

	for _, event := range events {
		updated, ok := event.(order.StatusUpdatedEvent)
		if !ok {
			continue
		}

		metrics.StatusTransitions.WithLabelValues(
			updated.FromStatus.String(), updated.ToStatus.String()).Inc()

		record, err := order.NewStatusLog(
			updated.OrderID, updated.FromStatus, updated.ToStatus,
			actor, updated.Note, updated.OccurredAt)
		if err != nil {
			s.logger.Error("build status log record", "error", err, "order_id", updated.OrderID)
			continue
		}
		if err := s.statusLogs.Append(ctx, record); err != nil {
			s.logger.Error("append status log record", "error", err, "order_id", updated.OrderID)
		}
	}

	s.publisher.Publish(ctx, events)
}

// RecordCreation appends the initial status log entry for a new order.
func (s SideEffects) RecordCreation(ctx context.Context, orderID kernel.UUID, now time.Time) {
	record, err := order.NewStatusLog(
		orderID, order.Unknown, order.Pending, order.SystemActor, "Order created", now)
	if err != nil {
		s.logger.Error("build creation log record", "error", err, "order_id", orderID)
		return
	}
	if err := s.statusLogs.Append(ctx, record); err != nil {
		s.logger.Error("append creation log record", "error", err, "order_id", orderID)
	}
}
