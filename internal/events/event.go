// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"fieldservice_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Contract Domain Events
// =============================================================================

// ContractCreated is published after a maintenance contract is persisted.
// The scheduler module subscribes to it to enqueue PM schedule generation.
type ContractCreated struct {
	BaseEvent
	ContractID     uuid.UUID `json:"contractId"`
	TenantID       uuid.UUID `json:"tenantId"`
	IntervalMonths int       `json:"intervalMonths"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	FacilityCount  int       `json:"facilityCount"`
}

func (e ContractCreated) EventName() string { return "contracts.contract.created" }

// ContractUpdated is published after a contract's coverage, interval, or
// facility set changes. Schedule regeneration is idempotent, so subscribers
// may re-enqueue generation unconditionally.
type ContractUpdated struct {
	BaseEvent
	ContractID uuid.UUID `json:"contractId"`
	TenantID   uuid.UUID `json:"tenantId"`
}

func (e ContractUpdated) EventName() string { return "contracts.contract.updated" }

// ContractDeactivated is published when a contract is soft-deleted.
type ContractDeactivated struct {
	BaseEvent
	ContractID uuid.UUID `json:"contractId"`
	TenantID   uuid.UUID `json:"tenantId"`
}

func (e ContractDeactivated) EventName() string { return "contracts.contract.deactivated" }

// =============================================================================
// PM Visit Domain Events
// =============================================================================

// PMVisitsGenerated is published after a schedule generation run persists
// new visits for a contract.
type PMVisitsGenerated struct {
	BaseEvent
	ContractID uuid.UUID `json:"contractId"`
	TenantID   uuid.UUID `json:"tenantId"`
	Inserted   int       `json:"inserted"`
}

func (e PMVisitsGenerated) EventName() string { return "pm.visits.generated" }

// PMVisitStatusChanged is published when a visit's status is updated through
// the API (as opposed to observed via the change-event stream).
type PMVisitStatusChanged struct {
	BaseEvent
	VisitID   uuid.UUID `json:"visitId"`
	TenantID  uuid.UUID `json:"tenantId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e PMVisitStatusChanged) EventName() string { return "pm.visit.status_changed" }
