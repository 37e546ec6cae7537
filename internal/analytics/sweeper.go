package analytics

import (
	"Lynx-Backend/internal/repository"
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper prunes analytics events that have aged past the owning user's
// plan retention window. Scheduling is external (cron invoking cmd/sweep);
// each run is idempotent and safe to overlap with event writes or with
// another run.
type Sweeper struct {
	storage repository.Storage
	log     *zap.Logger
}

func NewSweeper(storage repository.Storage, log *zap.Logger) *Sweeper {
	return &Sweeper{
		storage: storage,
		log:     log,
	}
}

// Run executes one retention sweep and returns the number of deleted events.
func (s *Sweeper) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	deleted, err := s.storage.SweepExpiredEvents(ctx, start)
	if err != nil {
		return 0, err
	}

	s.log.Info("retention sweep completed",
		zap.Int64("deleted", deleted),
		zap.Duration("took", time.Since(start)))
	return deleted, nil
}
