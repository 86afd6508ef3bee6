package jobs

import (
	"fmt"
	"log/slog"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/livecache"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	assignmentSweepJob *AssignmentSweepJob
	historyCleanupJob  *HistoryCleanupJob
	cacheEvictionJob   *CacheEvictionJob
}

// NewJobManager creates a new job manager with all required jobs.
// Takes command handlers as dependencies to wire up the job execution.
func NewJobManager(
	expireHandler commands.ExpireAssignmentsCommandHandler,
	dispatchHandler commands.DispatchReadyOrdersCommandHandler,
	cleanupHandler commands.CleanupHistoryCommandHandler,
	locationCache *livecache.Store[rider.LocationRecord],
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		assignmentSweepJob: NewAssignmentSweepJob(expireHandler, dispatchHandler, logger),
		historyCleanupJob:  NewHistoryCleanupJob(cleanupHandler, logger),
		cacheEvictionJob:   NewCacheEvictionJob(locationCache, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.assignmentSweepJob.Start(); err != nil {
		return fmt.Errorf("failed to start assignment sweep job: %w", err)
	}

	if err := jm.historyCleanupJob.Start(); err != nil {
		jm.assignmentSweepJob.Stop()
		return fmt.Errorf("failed to start history cleanup job: %w", err)
	}

	if err := jm.cacheEvictionJob.Start(); err != nil {
		jm.historyCleanupJob.Stop()
		jm.assignmentSweepJob.Stop()
		return fmt.Errorf("failed to start cache eviction job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.cacheEvictionJob.Stop()
	jm.historyCleanupJob.Stop()
	jm.assignmentSweepJob.Stop()
}
