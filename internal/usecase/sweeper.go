package usecase

import (
	"context"
	"time"

	"flightcast-service/internal/domain/repository"
	"flightcast-service/pkg/logger"
	"flightcast-service/pkg/ratelimit"
)

// MaintenanceSweeper runs the periodic batch work the core itself stays out
// of: deactivating subscriptions past their expiry and reclaiming stale
// rate-limit buckets
type MaintenanceSweeper struct {
	subRepo repository.SubscriptionRepository
	limiter *ratelimit.Limiter
	logger  logger.Logger
}

// NewMaintenanceSweeper creates a new maintenance sweeper
func NewMaintenanceSweeper(subRepo repository.SubscriptionRepository, limiter *ratelimit.Limiter, logger logger.Logger) *MaintenanceSweeper {
	return &MaintenanceSweeper{
		subRepo: subRepo,
		limiter: limiter,
		logger:  logger,
	}
}

// RunOnce performs one sweep pass
func (s *MaintenanceSweeper) RunOnce(ctx context.Context) error {
	expired, err := s.subRepo.DeactivateExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to deactivate expired subscriptions", "error", err)
		return err
	}
	reclaimed := s.limiter.Sweep()

	if expired > 0 || reclaimed > 0 {
		s.logger.Info("Maintenance sweep completed",
			"expiredSubscriptions", expired,
			"reclaimedBuckets", reclaimed)
	}
	return nil
}

// Start runs sweeps on a ticker until the context is cancelled
func (s *MaintenanceSweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Maintenance sweeper stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("Maintenance sweep failed", "error", err)
			}
		}
	}
}
