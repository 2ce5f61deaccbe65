package scheduler

import (
	"context"
	"testing"
	"time"

	"fieldservice_backend/internal/events"
	"fieldservice_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "test" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestPMScheduleGenerateTaskRoundTrip(t *testing.T) {
	payload := PMScheduleGeneratePayload{
		ContractID: uuid.NewString(),
		TenantID:   uuid.NewString(),
	}

	task, err := NewPMScheduleGenerateTask(payload)
	require.NoError(t, err)
	assert.Equal(t, TaskPMScheduleGenerate, task.Type())

	parsed, err := ParsePMScheduleGeneratePayload(task)
	require.NoError(t, err)
	assert.Equal(t, payload, parsed)
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	_, err := NewClient(testSchedulerConfig{redisURL: ""})
	require.Error(t, err)
}

func TestClientEnqueueGeneration(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	err = client.EnqueueGeneration(context.Background(), PMScheduleGeneratePayload{
		ContractID: uuid.NewString(),
		TenantID:   uuid.NewString(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys(), "enqueue must write the task to redis")
}

func TestClientScheduleTenantGeneration(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	err = client.ScheduleTenantGeneration(context.Background(),
		PMScheduleGenerateTenantPayload{TenantID: uuid.NewString()},
		time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())
}

type recordingScheduler struct {
	generations []PMScheduleGeneratePayload
}

func (r *recordingScheduler) EnqueueGeneration(_ context.Context, payload PMScheduleGeneratePayload) error {
	r.generations = append(r.generations, payload)
	return nil
}

func (r *recordingScheduler) ScheduleTenantGeneration(context.Context, PMScheduleGenerateTenantPayload, time.Time) error {
	return nil
}

func TestContractSubscribersEnqueueGeneration(t *testing.T) {
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	rec := &recordingScheduler{}
	RegisterContractSubscribers(bus, rec, log)

	contractID := uuid.New()
	tenantID := uuid.New()

	err := bus.PublishSync(context.Background(), events.ContractCreated{
		BaseEvent:  events.NewBaseEvent(),
		ContractID: contractID,
		TenantID:   tenantID,
	})
	require.NoError(t, err)

	err = bus.PublishSync(context.Background(), events.ContractUpdated{
		BaseEvent:  events.NewBaseEvent(),
		ContractID: contractID,
		TenantID:   tenantID,
	})
	require.NoError(t, err)

	require.Len(t, rec.generations, 2)
	assert.Equal(t, contractID.String(), rec.generations[0].ContractID)
	assert.Equal(t, tenantID.String(), rec.generations[1].TenantID)
}
