// Package transport defines request/response DTOs for the PM visits module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// VisitStatus is a PM visit lifecycle state.
type VisitStatus string

// Visit statuses. Completed and cancelled are terminal.
const (
	VisitStatusScheduled  VisitStatus = "scheduled"
	VisitStatusInProgress VisitStatus = "in_progress"
	VisitStatusCompleted  VisitStatus = "completed"
	VisitStatusCancelled  VisitStatus = "cancelled"
)

// VisitResponse is the API representation of a PM visit.
type VisitResponse struct {
	ID               uuid.UUID  `json:"id"`
	ContractID       uuid.UUID  `json:"contractId"`
	FacilityID       uuid.UUID  `json:"facilityId"`
	FacilityName     string     `json:"facilityName,omitempty"`
	ScheduledDate    string     `json:"scheduledDate"`
	Status           string     `json:"status"`
	CompletedDate    *time.Time `json:"completedDate,omitempty"`
	AssignedEngineer *string    `json:"assignedEngineer,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	ChecklistID      *uuid.UUID `json:"checklistId,omitempty"`
	AttachmentRefs   []string   `json:"attachmentRefs,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ListVisitsRequest carries visit listing query parameters.
type ListVisitsRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=1000"`
}

// UpdateVisitStatusRequest is the payload for a status transition.
type UpdateVisitStatusRequest struct {
	Status VisitStatus `json:"status" validate:"required,oneof=scheduled in_progress completed cancelled"`
}

// AssignEngineerRequest sets or clears the visit's assigned engineer.
type AssignEngineerRequest struct {
	Engineer *string `json:"engineer" validate:"omitempty,max=200"`
}

// GenerateScheduleRequest triggers schedule generation for one contract.
type GenerateScheduleRequest struct {
	ContractID uuid.UUID `json:"contractId" validate:"required"`
}

// GenerateScheduleResponse reports the outcome of a generation run.
type GenerateScheduleResponse struct {
	ContractID uuid.UUID `json:"contractId"`
	Generated  int       `json:"generated"`
	Inserted   int       `json:"inserted"`
}
