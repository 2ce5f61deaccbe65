package service

import (
	"context"
	"fmt"
	"time"

	contractrepo "fieldservice_backend/internal/contracts/repository"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/internal/pm/repository"
	"fieldservice_backend/internal/pm/schedule"
	"fieldservice_backend/internal/pm/transport"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const dateFormat = "2006-01-02"

// Store is the visit persistence surface the service depends on.
// Satisfied by *repository.Repository.
type Store interface {
	UpsertMany(ctx context.Context, visits []repository.PMVisit) (int, error)
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*repository.PMVisit, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]repository.PMVisit, error)
	ListByContract(ctx context.Context, contractID, tenantID uuid.UUID) ([]repository.PMVisit, error)
	UpdateStatus(ctx context.Context, id, tenantID uuid.UUID, status string, completedDate *time.Time) error
	UpdateAssignment(ctx context.Context, id, tenantID uuid.UUID, engineer *string) error
}

// ContractReader loads contracts for schedule generation.
type ContractReader interface {
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*contractrepo.Contract, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]contractrepo.Contract, error)
}

// Service provides PM visit scheduling and lifecycle operations.
type Service struct {
	repo      Store
	contracts ContractReader
	generator *schedule.Generator
	states    *StateRegistry
	cfg       config.ScheduleConfig
	log       *logger.Logger
	eventBus  events.Bus
	clock     clockwork.Clock
}

// New creates a new PM visits service.
func New(repo Store, contracts ContractReader, cfg config.ScheduleConfig, log *logger.Logger, eventBus events.Bus, clock clockwork.Clock) *Service {
	return &Service{
		repo:      repo,
		contracts: contracts,
		generator: schedule.New(clock),
		states:    NewStateRegistry(),
		cfg:       cfg,
		log:       log,
		eventBus:  eventBus,
		clock:     clock,
	}
}

// States exposes the per-tenant visit state registry for the realtime layer.
func (s *Service) States() *StateRegistry {
	return s.states
}

// GenerateForContract generates and persists the contract's PM visits within
// the configured horizon. Safe to call repeatedly: the store skips rows that
// already exist for a (contract, facility, date) triple.
func (s *Service) GenerateForContract(ctx context.Context, contractID, tenantID uuid.UUID) (*transport.GenerateScheduleResponse, error) {
	contract, err := s.contracts.GetByID(ctx, contractID, tenantID)
	if err != nil {
		return nil, err
	}
	if !contract.Active {
		return nil, apperr.Conflict("contract is not active")
	}

	horizonEnd := s.clock.Now().UTC().AddDate(0, s.cfg.GetPMHorizonMonths(), 0)
	visits, err := s.generator.Generate(*contract, horizonEnd)
	if err != nil {
		return nil, err
	}

	inserted, err := s.repo.UpsertMany(ctx, visits)
	if err != nil {
		return nil, fmt.Errorf("failed to persist generated visits: %w", err)
	}

	if inserted > 0 && s.eventBus != nil {
		s.eventBus.Publish(ctx, events.PMVisitsGenerated{
			BaseEvent:  events.NewBaseEvent(),
			ContractID: contractID,
			TenantID:   tenantID,
			Inserted:   inserted,
		})
	}

	s.log.Info("pm schedule generated",
		"contract_id", contractID, "generated", len(visits), "inserted", inserted)

	return &transport.GenerateScheduleResponse{
		ContractID: contractID,
		Generated:  len(visits),
		Inserted:   inserted,
	}, nil
}

// GenerateForTenant runs schedule generation for every active contract of a
// tenant. Used by the periodic generation job. A failure on one contract is
// logged and does not block the rest.
func (s *Service) GenerateForTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	contracts, err := s.contracts.ListActive(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, contract := range contracts {
		resp, err := s.GenerateForContract(ctx, contract.ID, tenantID)
		if err != nil {
			s.log.Error("schedule generation failed for contract",
				"contract_id", contract.ID, "error", err)
			continue
		}
		total += resp.Inserted
	}
	return total, nil
}

// ListVisits returns the tenant's visits, newest first.
func (s *Service) ListVisits(ctx context.Context, tenantID uuid.UUID, limit int) ([]transport.VisitResponse, error) {
	visits, err := s.repo.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	return toResponses(visits), nil
}

// GetVisit retrieves a single visit.
func (s *Service) GetVisit(ctx context.Context, id, tenantID uuid.UUID) (*transport.VisitResponse, error) {
	visit, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*visit)
	return &resp, nil
}

// UpdateStatus transitions a visit's status. Transitions are monotonic:
// completed and cancelled are terminal and the store stays authoritative for
// the resulting row image.
func (s *Service) UpdateStatus(ctx context.Context, id, tenantID uuid.UUID, status transport.VisitStatus) (*transport.VisitResponse, error) {
	visit, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	if repository.IsTerminalStatus(visit.Status) {
		return nil, apperr.Conflict(fmt.Sprintf("visit is already %s", visit.Status))
	}
	if visit.Status == string(status) {
		resp := toResponse(*visit)
		return &resp, nil
	}

	var completedDate *time.Time
	if status == transport.VisitStatusCompleted {
		now := s.clock.Now().UTC()
		completedDate = &now
	}

	if err := s.repo.UpdateStatus(ctx, id, tenantID, string(status), completedDate); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.PMVisitStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			VisitID:   id,
			TenantID:  tenantID,
			OldStatus: visit.Status,
			NewStatus: string(status),
		})
	}

	updated, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*updated)
	return &resp, nil
}

// AssignEngineer sets or clears the visit's assigned engineer.
func (s *Service) AssignEngineer(ctx context.Context, id, tenantID uuid.UUID, engineer *string) (*transport.VisitResponse, error) {
	visit, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	if repository.IsTerminalStatus(visit.Status) {
		return nil, apperr.Conflict(fmt.Sprintf("visit is already %s", visit.Status))
	}

	if err := s.repo.UpdateAssignment(ctx, id, tenantID, engineer); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(*updated)
	return &resp, nil
}

// SnapshotVisits returns the tenant's reconciled in-memory collection. The
// snapshot reflects the last applied change batch, not a fresh store read.
func (s *Service) SnapshotVisits(tenantID uuid.UUID) []transport.VisitResponse {
	return toResponses(s.states.For(tenantID).Snapshot())
}

// RefreshState reloads a tenant's in-memory visit collection from the store.
// Used when a realtime session starts and as the scoped fallback when an
// update event references a visit the collection does not hold.
func (s *Service) RefreshState(ctx context.Context, tenantID uuid.UUID) error {
	visits, err := s.repo.ListByTenant(ctx, tenantID, 0)
	if err != nil {
		return fmt.Errorf("failed to refresh visit state: %w", err)
	}
	s.states.For(tenantID).Replace(visits)
	return nil
}

func toResponse(v repository.PMVisit) transport.VisitResponse {
	return transport.VisitResponse{
		ID:               v.ID,
		ContractID:       v.ContractID,
		FacilityID:       v.FacilityID,
		FacilityName:     v.FacilityName,
		ScheduledDate:    v.ScheduledDate.Format(dateFormat),
		Status:           v.Status,
		CompletedDate:    v.CompletedDate,
		AssignedEngineer: v.AssignedEngineer,
		Notes:            v.Notes,
		ChecklistID:      v.ChecklistID,
		AttachmentRefs:   v.AttachmentRefs,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

func toResponses(visits []repository.PMVisit) []transport.VisitResponse {
	resp := make([]transport.VisitResponse, len(visits))
	for i, v := range visits {
		resp[i] = toResponse(v)
	}
	return resp
}
