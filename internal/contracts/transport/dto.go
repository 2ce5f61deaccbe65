// Package transport defines request/response DTOs for the contracts module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the request priority tier used for SLA derivation.
type Priority string

// Priority tiers.
const (
	PriorityCritical Priority = "critical"
	PriorityStandard Priority = "standard"
)

// Valid reports whether the priority is a known tier.
func (p Priority) Valid() bool {
	return p == PriorityCritical || p == PriorityStandard
}

// CreateContractRequest is the payload for creating a contract.
type CreateContractRequest struct {
	Title              string      `json:"title" validate:"required,max=200"`
	ServiceType        string      `json:"serviceType" validate:"required,max=100"`
	StartDate          string      `json:"startDate" validate:"required"`
	EndDate            string      `json:"endDate" validate:"required"`
	IntervalMonths     int         `json:"intervalMonths" validate:"required,oneof=1 3 6"`
	SLACriticalMinutes *int        `json:"slaCriticalMinutes" validate:"omitempty,min=1"`
	SLAStandardMinutes *int        `json:"slaStandardMinutes" validate:"omitempty,min=1"`
	Precedence         int         `json:"precedence" validate:"min=0"`
	FacilityIDs        []uuid.UUID `json:"facilityIds"`
}

// UpdateContractRequest is the payload for partially updating a contract.
type UpdateContractRequest struct {
	Title              *string      `json:"title" validate:"omitempty,max=200"`
	ServiceType        *string      `json:"serviceType" validate:"omitempty,max=100"`
	StartDate          *string      `json:"startDate"`
	EndDate            *string      `json:"endDate"`
	IntervalMonths     *int         `json:"intervalMonths" validate:"omitempty,oneof=1 3 6"`
	SLACriticalMinutes *int         `json:"slaCriticalMinutes" validate:"omitempty,min=1"`
	SLAStandardMinutes *int         `json:"slaStandardMinutes" validate:"omitempty,min=1"`
	Precedence         *int         `json:"precedence" validate:"omitempty,min=0"`
	FacilityIDs        *[]uuid.UUID `json:"facilityIds"`
}

// ContractResponse is the API representation of a contract.
type ContractResponse struct {
	ID                 uuid.UUID   `json:"id"`
	Title              string      `json:"title"`
	ServiceType        string      `json:"serviceType"`
	StartDate          string      `json:"startDate"`
	EndDate            string      `json:"endDate"`
	IntervalMonths     int         `json:"intervalMonths"`
	SLACriticalMinutes *int        `json:"slaCriticalMinutes,omitempty"`
	SLAStandardMinutes *int        `json:"slaStandardMinutes,omitempty"`
	Precedence         int         `json:"precedence"`
	FacilityIDs        []uuid.UUID `json:"facilityIds"`
	Active             bool        `json:"active"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// ResolveSLARequest carries the SLA lookup query parameters.
type ResolveSLARequest struct {
	FacilityID  string `form:"facilityId" validate:"required,uuid"`
	Priority    string `form:"priority" validate:"required"`
	ServiceType string `form:"serviceType"`
	AsOf        string `form:"asOf"`
}

// ResolveSLAResponse is the outcome of an SLA lookup. SlaMinutes is null when
// no SLA applies to the tier.
type ResolveSLAResponse struct {
	ContractID *uuid.UUID `json:"contractId,omitempty"`
	SlaMinutes *int64     `json:"slaMinutes"`
	Source     string     `json:"source"`
}
