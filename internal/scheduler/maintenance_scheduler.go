package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/tmarsden/tradescout-backend/internal/app/repository"
	"github.com/tmarsden/tradescout-backend/internal/cache"
	"github.com/tmarsden/tradescout-backend/pkg/logger"
)

// MaintenanceScheduler runs the periodic housekeeping jobs: purging expired
// records from the durable store and sweeping expired entries out of the
// in-process cache.
type MaintenanceScheduler struct {
	cron     *cron.Cron
	repo     repository.BusinessRepository
	memCache *cache.MemoryCache
}

func NewMaintenanceScheduler(repo repository.BusinessRepository, memCache *cache.MemoryCache) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron:     cron.New(),
		repo:     repo,
		memCache: memCache,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *MaintenanceScheduler) Start() error {
	// hourly: purge stored records past their cache expiry
	_, err := s.cron.AddFunc("0 * * * *", func() {
		purged, err := s.repo.PurgeExpired()
		if err != nil {
			logger.Error("Failed to purge expired business records", err)
			return
		}
		if purged > 0 {
			logger.Info("Purged expired business records", map[string]interface{}{
				"purged": purged,
			})
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for record purge", err)
		return err
	}

	// every 5 minutes: sweep expired cache entries
	_, err = s.cron.AddFunc("*/5 * * * *", func() {
		swept := s.memCache.Sweep()
		if swept > 0 {
			logger.Debug("Swept expired cache entries", map[string]interface{}{
				"swept": swept,
			})
		}
	})
	if err != nil {
		logger.Error("Failed to add cron job for cache sweep", err)
		return err
	}

	s.cron.Start()
	logger.Info("Maintenance scheduler started (hourly purge, 5m cache sweep)", nil)

	return nil
}

// Stop stops the scheduler.
func (s *MaintenanceScheduler) Stop() {
	logger.Info("Stopping maintenance scheduler...", nil)
	s.cron.Stop()
	logger.Info("Maintenance scheduler stopped", nil)
}
