package jobs

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/rider"
	"dispatch/internal/pkg/livecache"

	"github.com/robfig/cron/v3"
)

// CacheEvictionJob sweeps expired entries out of the live location cache
// so riders that stopped reporting do not linger in memory.
type CacheEvictionJob struct {
	cache  *livecache.Store[rider.LocationRecord]
	cron   *cron.Cron
	logger *slog.Logger
}

// NewCacheEvictionJob creates the eviction job over the given cache.
func NewCacheEvictionJob(cache *livecache.Store[rider.LocationRecord], logger *slog.Logger) *CacheEvictionJob {
	return &CacheEvictionJob{
		cache:  cache,
		cron:   cron.New(),
		logger: logger.With("component", "cache_eviction_job"),
	}
}

// Start schedules the eviction pass to run every minute.
func (j *CacheEvictionJob) Start() error {
	_, err := j.cron.AddFunc("* * * * *", func() {
		if evicted := j.cache.Evict(time.Now()); evicted > 0 {
			j.logger.Debug("Evicted stale location entries", "count", evicted)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Cache eviction job started (running every minute)")
	return nil
}

// Stop stops the eviction job.
func (j *CacheEvictionJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Cache eviction job stopped")
}
