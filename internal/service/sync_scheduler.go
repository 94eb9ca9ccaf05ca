package service

import (
	"context"
	"errors"
	"time"

	"chatproxy-be/internal/pkg/logger"
)

type SyncScheduler struct {
	sync      IChatflowSyncService
	interval  time.Duration
	onStartup bool
	logger    logger.ILogger
}

func NewSyncScheduler(syncService IChatflowSyncService, interval time.Duration, onStartup bool, log logger.ILogger) *SyncScheduler {
	return &SyncScheduler{
		sync:      syncService,
		interval:  interval,
		onStartup: onStartup,
		logger:    log,
	}
}

// Run blocks until ctx is done. With a zero interval and no startup run it
// returns immediately.
func (s *SyncScheduler) Run(ctx context.Context) {
	if s.onStartup {
		s.runOnce(ctx, "startup")
	}
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("SYNC_SCHEDULER", "Scheduled chatflow sync started", map[string]interface{}{"interval": s.interval.String()})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, "schedule")
		}
	}
}

func (s *SyncScheduler) runOnce(ctx context.Context, trigger string) {
	_, err := s.sync.Sync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		s.logger.Info("SYNC_SCHEDULER", "Skipped, sync already running", map[string]interface{}{"trigger": trigger})
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Error("SYNC_SCHEDULER", "Scheduled sync failed", map[string]interface{}{"trigger": trigger, "error": err})
	}
}
