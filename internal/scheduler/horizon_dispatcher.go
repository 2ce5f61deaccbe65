package scheduler

import (
	"context"
	"fmt"
	"time"

	contractrepo "fieldservice_backend/internal/contracts/repository"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultHorizonDispatchInterval = 24 * time.Hour

// HorizonDispatcher periodically enqueues tenant-wide schedule generation so
// the rolling horizon keeps advancing even for contracts that never change.
type HorizonDispatcher struct {
	client   *asynq.Client
	queue    string
	repo     *contractrepo.Repository
	interval time.Duration
	log      *logger.Logger
}

func NewHorizonDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, interval time.Duration, log *logger.Logger) (*HorizonDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	if interval <= 0 {
		interval = defaultHorizonDispatchInterval
	}

	return &HorizonDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		repo:     contractrepo.New(pool),
		interval: interval,
		log:      log,
	}, nil
}

func (d *HorizonDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *HorizonDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	d.dispatch(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.dispatch(ctx)
	}
}

func (d *HorizonDispatcher) dispatch(ctx context.Context) {
	tenants, err := d.repo.TenantsWithActiveContracts(ctx)
	if err != nil {
		d.log.Warn("horizon dispatch tenant scan failed", "error", err)
		return
	}

	for _, tenantID := range tenants {
		task, err := NewPMScheduleGenerateTenantTask(PMScheduleGenerateTenantPayload{
			TenantID: tenantID.String(),
		})
		if err != nil {
			d.log.Warn("failed to build tenant generation task",
				"tenant_id", tenantID, "error", err)
			continue
		}

		if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue)); err != nil {
			d.log.Warn("failed to enqueue tenant generation",
				"tenant_id", tenantID, "error", err)
		}
	}

	if len(tenants) > 0 {
		d.log.Info("horizon generation dispatched", "tenants", len(tenants))
	}
}
