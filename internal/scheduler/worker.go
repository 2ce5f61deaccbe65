package scheduler

import (
	"context"
	"fmt"

	contractrepo "fieldservice_backend/internal/contracts/repository"
	"fieldservice_backend/internal/events"
	pmrepo "fieldservice_backend/internal/pm/repository"
	pmservice "fieldservice_backend/internal/pm/service"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	pm     *pmservice.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, scheduleCfg config.ScheduleConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		pm: pmservice.New(pmrepo.New(pool), contractrepo.New(pool),
			scheduleCfg, log, bus, clockwork.NewRealClock()),
		log: log,
	}

	mux.HandleFunc(TaskPMScheduleGenerate, w.handleScheduleGenerate)
	mux.HandleFunc(TaskPMScheduleGenerateTenant, w.handleScheduleGenerateTenant)

	return w, nil
}

func (w *Worker) handleScheduleGenerate(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePMScheduleGeneratePayload(task)
	if err != nil {
		return err
	}

	contractID, err := uuid.Parse(payload.ContractID)
	if err != nil {
		return err
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	resp, err := w.pm.GenerateForContract(ctx, contractID, tenantID)
	if err != nil {
		return err
	}

	w.log.Info("schedule generation task done",
		"contract_id", contractID, "generated", resp.Generated, "inserted", resp.Inserted)
	return nil
}

func (w *Worker) handleScheduleGenerateTenant(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePMScheduleGenerateTenantPayload(task)
	if err != nil {
		return err
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	inserted, err := w.pm.GenerateForTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	w.log.Info("tenant schedule generation task done",
		"tenant_id", tenantID, "inserted", inserted)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
