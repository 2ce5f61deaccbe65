package scheduler

import (
	"context"

	"fieldservice_backend/internal/events"
	"fieldservice_backend/platform/logger"
)

// RegisterContractSubscribers wires contract lifecycle events to schedule
// generation: a created or updated contract gets its PM visits (re)generated
// out of band. Generation is idempotent, so over-enqueueing is safe.
func RegisterContractSubscribers(bus events.Bus, client GenerationScheduler, log *logger.Logger) {
	if bus == nil || client == nil {
		return
	}

	bus.Subscribe(events.ContractCreated{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			created, ok := event.(events.ContractCreated)
			if !ok {
				return nil
			}
			err := client.EnqueueGeneration(ctx, PMScheduleGeneratePayload{
				ContractID: created.ContractID.String(),
				TenantID:   created.TenantID.String(),
			})
			if err != nil {
				log.Error("failed to enqueue schedule generation",
					"contract_id", created.ContractID, "error", err)
			}
			return err
		}))

	bus.Subscribe(events.ContractUpdated{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			updated, ok := event.(events.ContractUpdated)
			if !ok {
				return nil
			}
			err := client.EnqueueGeneration(ctx, PMScheduleGeneratePayload{
				ContractID: updated.ContractID.String(),
				TenantID:   updated.TenantID.String(),
			})
			if err != nil {
				log.Error("failed to enqueue schedule regeneration",
					"contract_id", updated.ContractID, "error", err)
			}
			return err
		}))
}
