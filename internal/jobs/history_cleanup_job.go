package jobs

import (
	"context"
	"log/slog"

	"dispatch/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

// HistoryCleanupJob prunes status logs and rider location history past
// the retention window. Runs nightly during the quiet hours.
type HistoryCleanupJob struct {
	handler commands.CleanupHistoryCommandHandler
	cron    *cron.Cron
	logger  *slog.Logger
}

// NewHistoryCleanupJob creates the nightly retention job.
func NewHistoryCleanupJob(handler commands.CleanupHistoryCommandHandler, logger *slog.Logger) *HistoryCleanupJob {
	return &HistoryCleanupJob{
		handler: handler,
		cron:    cron.New(),
		logger:  logger.With("component", "history_cleanup_job"),
	}
}

// Start schedules the cleanup to run at 03:00 every day.
func (j *HistoryCleanupJob) Start() error {
	_, err := j.cron.AddFunc("0 3 * * *", func() {
		ctx := context.Background()
		if _, err := j.handler.Handle(ctx); err != nil {
			j.logger.ErrorContext(ctx, "History cleanup failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "History cleanup job started (running daily at 03:00)")
	return nil
}

// Stop stops the cleanup job.
func (j *HistoryCleanupJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "History cleanup job stopped")
}
