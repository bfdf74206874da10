package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/patientsportal/portal/internal/portal/store"
)

// HousekeepingService periodically deletes expired MFA challenges. Refresh
// tokens are kept as the rotation audit trail.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup performs one sweep and returns how many challenges were removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	n, err := s.Store.MFAChallenges().DeleteExpiredMFAChallenges(ctx, nowFrom(s.Now))
	if err != nil {
		s.Logger.Error("failed to delete expired mfa challenges", "error", err)
		return 0
	}
	s.Logger.Info("housekeeping cleanup completed", "mfa_challenges_deleted", n)
	return n
}
