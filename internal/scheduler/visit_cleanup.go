package scheduler

import (
	"context"
	"time"

	pmrepo "fieldservice_backend/internal/pm/repository"
	"fieldservice_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultVisitCleanupInterval    = time.Hour
	defaultCancelledVisitRetention = 90 * 24 * time.Hour
)

// VisitCleanup periodically removes old cancelled PM visits. Completed visits
// are kept as maintenance history and never cleaned up.
type VisitCleanup struct {
	repo      *pmrepo.Repository
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
}

func NewVisitCleanup(pool *pgxpool.Pool, log *logger.Logger, interval, retention time.Duration) *VisitCleanup {
	if interval <= 0 {
		interval = defaultVisitCleanupInterval
	}
	if retention <= 0 {
		retention = defaultCancelledVisitRetention
	}

	return &VisitCleanup{
		repo:      pmrepo.New(pool),
		log:       log,
		interval:  interval,
		retention: retention,
	}
}

func (c *VisitCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *VisitCleanup) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-c.retention)

	deleted, err := c.repo.DeleteCancelledBefore(ctx, cutoff)
	if err != nil {
		c.log.Warn("cancelled visit cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("cancelled visit cleanup deleted visits", "deleted", deleted)
	}
}
