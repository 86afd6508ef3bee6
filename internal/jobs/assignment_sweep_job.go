package jobs

import (
	"context"
	"log/slog"

	"dispatch/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

// AssignmentSweepJob runs the dispatch loop on a schedule: first release
// assignments that outlived the acceptance window, then hand ready orders
// to the nearest available riders. Expiry runs first so a rider freed in
// this pass is already a candidate for the dispatch half of the same pass.
type AssignmentSweepJob struct {
	expire   commands.ExpireAssignmentsCommandHandler
	dispatch commands.DispatchReadyOrdersCommandHandler
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewAssignmentSweepJob creates the sweep job. It runs once a minute.
func NewAssignmentSweepJob(
	expire commands.ExpireAssignmentsCommandHandler,
	dispatch commands.DispatchReadyOrdersCommandHandler,
	logger *slog.Logger,
) *AssignmentSweepJob {
	return &AssignmentSweepJob{
		expire:   expire,
		dispatch: dispatch,
		cron:     cron.New(),
		logger:   logger.With("component", "assignment_sweep_job"),
	}
}

// Start schedules the sweep to run every minute.
func (j *AssignmentSweepJob) Start() error {
	_, err := j.cron.AddFunc("* * * * *", func() {
		ctx := context.Background()

		expired, err := j.expire.Handle(ctx)
		if err != nil {
			j.logger.ErrorContext(ctx, "Assignment expiry pass failed", "error", err)
		}

		dispatched, err := j.dispatch.Handle(ctx)
		if err != nil {
			j.logger.ErrorContext(ctx, "Dispatch pass failed", "error", err)
		}

		if expired > 0 || dispatched > 0 {
			j.logger.InfoContext(ctx, "Assignment sweep finished",
				"expired", expired, "dispatched", dispatched)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Assignment sweep job started (running every minute)")
	return nil
}

// Stop stops the sweep job.
func (j *AssignmentSweepJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Assignment sweep job stopped")
}
