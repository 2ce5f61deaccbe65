package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"fieldservice_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

// GenerationScheduler enqueues schedule-generation work. Implemented by
// *Client; consumed by the contract-event subscriber.
type GenerationScheduler interface {
	EnqueueGeneration(ctx context.Context, payload PMScheduleGeneratePayload) error
	ScheduleTenantGeneration(ctx context.Context, payload PMScheduleGenerateTenantPayload, runAt time.Time) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueGeneration enqueues generation for one contract, to run immediately.
// Generation is idempotent, so duplicate enqueues for the same contract are
// harmless.
func (c *Client) EnqueueGeneration(ctx context.Context, payload PMScheduleGeneratePayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewPMScheduleGenerateTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// ScheduleTenantGeneration enqueues a tenant-wide generation run at runAt.
func (c *Client) ScheduleTenantGeneration(ctx context.Context, payload PMScheduleGenerateTenantPayload, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewPMScheduleGenerateTenantTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
