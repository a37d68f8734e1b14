package masterdata

import (
	"context"
	"log/slog"
	"time"
)

// Syncer runs the master-data refresh on a fixed schedule, started once
// from the worker command.
type Syncer struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSyncer(service *Service, interval time.Duration, logger *slog.Logger) *Syncer {
	return &Syncer{service: service, interval: interval, logger: logger}
}

// Run syncs once at startup, then on every tick until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	s.logger.Info("SAP master data syncer started", "interval", s.interval)

	s.service.SyncAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SAP master data syncer stopped")
			return
		case <-ticker.C:
			s.service.SyncAll(ctx)
		}
	}
}
