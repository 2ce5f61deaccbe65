package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskPMScheduleGenerate = "pm.schedule.generate"

const TaskPMScheduleGenerateTenant = "pm.schedule.generate_tenant"

type PMScheduleGeneratePayload struct {
	ContractID string `json:"contractId"`
	TenantID   string `json:"tenantId"`
}

type PMScheduleGenerateTenantPayload struct {
	TenantID string `json:"tenantId"`
}

func NewPMScheduleGenerateTask(payload PMScheduleGeneratePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPMScheduleGenerate, data), nil
}

func ParsePMScheduleGeneratePayload(task *asynq.Task) (PMScheduleGeneratePayload, error) {
	var payload PMScheduleGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PMScheduleGeneratePayload{}, err
	}
	return payload, nil
}

func NewPMScheduleGenerateTenantTask(payload PMScheduleGenerateTenantPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPMScheduleGenerateTenant, data), nil
}

func ParsePMScheduleGenerateTenantPayload(task *asynq.Task) (PMScheduleGenerateTenantPayload, error) {
	var payload PMScheduleGenerateTenantPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PMScheduleGenerateTenantPayload{}, err
	}
	return payload, nil
}
