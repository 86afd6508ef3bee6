package commands

import (
	"context"
	"log/slog"
	"time"
)

// CleanupHistoryCommandHandler trims the append-only histories (status logs
// and rider location trails) and finished payments past the retention
// horizon.
type CleanupHistoryCommandHandler struct {
	uowFactory CleanupUoWFactory
	retention  time.Duration
	logger     *slog.Logger
}

// NewCleanupHistoryCommandHandler creates a retention cleanup handler.
func NewCleanupHistoryCommandHandler(
	uowFactory CleanupUoWFactory,
	retention time.Duration,
	logger *slog.Logger,
) CleanupHistoryCommandHandler {
	return CleanupHistoryCommandHandler{
		uowFactory: uowFactory,
		retention:  retention,
		logger:     logger.With("component", "history_cleanup"),
	}
}

// Handle deletes history rows older than the retention horizon and returns
// how many rows went away.
func (h CleanupHistoryCommandHandler) Handle(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-h.retention)

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	logs, err := uow.StatusLogRepository().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	locations, err := uow.LocationRepository().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	payments, err := uow.PaymentRepository().DeleteFinishedOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if err = uow.Commit(ctx); err != nil {
		return 0, err
	}

	total := logs + locations + payments
	if total > 0 {
		h.logger.Info("history cleanup finished",
			"status_logs", logs, "locations", locations, "payments", payments,
			"cutoff", cutoff)
	}

	return total, nil
}
