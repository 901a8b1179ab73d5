package weatherinsight

import (
	"context"
)

// =============================================================================
// Lifecycle
// =============================================================================

// Start starts background housekeeping.
func (s *Service) Start(ctx context.Context) error {
	return s.BaseService.Start(ctx)
}

// Stop stops background housekeeping.
func (s *Service) Stop() error {
	return s.BaseService.Stop()
}

func (s *Service) registerJobs() error {
	if s.limiter != nil {
		err := s.AddCronJob("limiter-cleanup", "@every 5m", func(ctx context.Context) error {
			if removed := s.limiter.Cleanup(limiterIdleTimeout); removed > 0 {
				s.logger.WithContext(ctx).WithField("removed", removed).Debug("rate limiter entries evicted")
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if s.cache != nil {
		s.AddTickerWorker("cache-purge", cachePurgeInterval, func(ctx context.Context) error {
			if removed := s.cache.Purge(); removed > 0 {
				s.logger.WithContext(ctx).WithField("removed", removed).Debug("expired forecasts purged")
			}
			return nil
		})
	}
	return nil
}
