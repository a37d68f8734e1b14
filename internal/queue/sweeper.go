package queue

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper drives the queue's background drain on a fixed interval. It is
// started once from the worker command; overlapping ticks are absorbed by
// the service's own in-flight guard.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("SAP posting queue sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SAP posting queue sweeper stopped")
			return
		case <-ticker.C:
			if err := s.service.ProcessQueue(ctx); err != nil {
				s.logger.Error("queue sweep failed", "error", err)
			}
		}
	}
}
