package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/gate/store"
)

// HousekeepingService periodically purges tokens whose expiry is further in
// the past than the retention window. Expiry alone never deletes a row;
// this job is the only thing that physically removes stale tokens.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. Interval defaults
// to 1 hour and retention to 30 days when not positive.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop shuts the worker down, blocking until any in-progress purge finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run once on startup rather than waiting a full interval
	s.purge()

	for {
		select {
		case <-ticker.C:
			s.purge()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) purge() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-s.Retention)

	deleted, err := s.Store.Tokens().PurgeExpiredTokens(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to purge expired tokens", "error", err)
		return
	}

	if deleted > 0 {
		s.Logger.Info("purged expired tokens", "deleted", deleted, "cutoff", cutoff)
	}
}
