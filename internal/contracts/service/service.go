package service

import (
	"context"
	"fmt"
	"time"

	"fieldservice_backend/internal/contracts/repository"
	"fieldservice_backend/internal/contracts/transport"
	"fieldservice_backend/internal/events"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/config"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const dateFormat = "2006-01-02"

// Store is the contract persistence surface the service depends on.
// Satisfied by *repository.Repository.
type Store interface {
	Create(ctx context.Context, contract *repository.Contract) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*repository.Contract, error)
	ActiveContractsCovering(ctx context.Context, tenantID, facilityID uuid.UUID, asOf time.Time) ([]repository.Contract, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]repository.Contract, error)
	Update(ctx context.Context, contract *repository.Contract) error
	Deactivate(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
}

// Service provides contract administration and SLA derivation.
type Service struct {
	repo     Store
	slaCfg   config.SLAConfig
	log      *logger.Logger
	eventBus events.Bus
	clock    clockwork.Clock
}

// New creates a new contracts service.
func New(repo Store, slaCfg config.SLAConfig, log *logger.Logger, eventBus events.Bus, clock clockwork.Clock) *Service {
	return &Service{
		repo:     repo,
		slaCfg:   slaCfg,
		log:      log,
		eventBus: eventBus,
		clock:    clock,
	}
}

// ValidateTerms rejects a contract whose recurrence or coverage data is
// malformed, reporting the offending contract id. Schedule generation calls
// this before emitting any visits.
func ValidateTerms(c repository.Contract) error {
	switch c.IntervalMonths {
	case 1, 3, 6:
	default:
		return apperr.Validation(fmt.Sprintf("contract %s: interval must be 1, 3, or 6 months", c.ID))
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return apperr.Validation(fmt.Sprintf("contract %s: coverage window is incomplete", c.ID))
	}
	if c.EndDate.Before(c.StartDate) {
		return apperr.Validation(fmt.Sprintf("contract %s: coverage end precedes start", c.ID))
	}
	return nil
}

// Create persists a new contract and announces it on the event bus.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateContractRequest) (*transport.ContractResponse, error) {
	start, end, err := parseCoverage(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	contract := &repository.Contract{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		Title:              req.Title,
		ServiceType:        req.ServiceType,
		StartDate:          start,
		EndDate:            end,
		IntervalMonths:     req.IntervalMonths,
		SLACriticalMinutes: req.SLACriticalMinutes,
		SLAStandardMinutes: req.SLAStandardMinutes,
		Precedence:         req.Precedence,
		FacilityIDs:        req.FacilityIDs,
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if contract.FacilityIDs == nil {
		contract.FacilityIDs = []uuid.UUID{}
	}

	if err := ValidateTerms(*contract); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, contract); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ContractCreated{
			BaseEvent:      events.NewBaseEvent(),
			ContractID:     contract.ID,
			TenantID:       tenantID,
			IntervalMonths: contract.IntervalMonths,
			StartDate:      contract.StartDate,
			EndDate:        contract.EndDate,
			FacilityCount:  len(contract.FacilityIDs),
		})
	}

	resp := toResponse(contract)
	return &resp, nil
}

// GetByID retrieves a contract.
func (s *Service) GetByID(ctx context.Context, id, tenantID uuid.UUID) (*transport.ContractResponse, error) {
	contract, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	resp := toResponse(contract)
	return &resp, nil
}

// ListActive returns all active contracts for the tenant.
func (s *Service) ListActive(ctx context.Context, tenantID uuid.UUID) ([]transport.ContractResponse, error) {
	contracts, err := s.repo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]transport.ContractResponse, len(contracts))
	for i := range contracts {
		resp[i] = toResponse(&contracts[i])
	}
	return resp, nil
}

// Update applies partial updates to a contract and announces the change.
func (s *Service) Update(ctx context.Context, id, tenantID uuid.UUID, req transport.UpdateContractRequest) (*transport.ContractResponse, error) {
	contract, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	if err := applyContractUpdates(contract, req); err != nil {
		return nil, err
	}
	if err := ValidateTerms(*contract); err != nil {
		return nil, err
	}

	contract.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, contract); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ContractUpdated{
			BaseEvent:  events.NewBaseEvent(),
			ContractID: contract.ID,
			TenantID:   tenantID,
		})
	}

	resp := toResponse(contract)
	return &resp, nil
}

// Deactivate soft-deletes a contract.
func (s *Service) Deactivate(ctx context.Context, id, tenantID uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id, tenantID); err != nil {
		return err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ContractDeactivated{
			BaseEvent:  events.NewBaseEvent(),
			ContractID: id,
			TenantID:   tenantID,
		})
	}
	return nil
}

func applyContractUpdates(contract *repository.Contract, req transport.UpdateContractRequest) error {
	if req.Title != nil {
		contract.Title = *req.Title
	}
	if req.ServiceType != nil {
		contract.ServiceType = *req.ServiceType
	}
	if req.StartDate != nil {
		start, err := parseDate(*req.StartDate, "startDate")
		if err != nil {
			return err
		}
		contract.StartDate = start
	}
	if req.EndDate != nil {
		end, err := parseDate(*req.EndDate, "endDate")
		if err != nil {
			return err
		}
		contract.EndDate = end
	}
	if req.IntervalMonths != nil {
		contract.IntervalMonths = *req.IntervalMonths
	}
	if req.SLACriticalMinutes != nil {
		contract.SLACriticalMinutes = req.SLACriticalMinutes
	}
	if req.SLAStandardMinutes != nil {
		contract.SLAStandardMinutes = req.SLAStandardMinutes
	}
	if req.Precedence != nil {
		contract.Precedence = *req.Precedence
	}
	if req.FacilityIDs != nil {
		contract.FacilityIDs = *req.FacilityIDs
	}
	return nil
}

func parseCoverage(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := parseDate(startStr, "startDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(endStr, "endDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperr.BadRequest("endDate must be on or after startDate")
	}
	return start, end, nil
}

func parseDate(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(dateFormat, value)
	if err != nil {
		return time.Time{}, apperr.BadRequest(fmt.Sprintf("invalid %s format, expected YYYY-MM-DD", fieldName))
	}
	return t, nil
}

func toResponse(c *repository.Contract) transport.ContractResponse {
	return transport.ContractResponse{
		ID:                 c.ID,
		Title:              c.Title,
		ServiceType:        c.ServiceType,
		StartDate:          c.StartDate.Format(dateFormat),
		EndDate:            c.EndDate.Format(dateFormat),
		IntervalMonths:     c.IntervalMonths,
		SLACriticalMinutes: c.SLACriticalMinutes,
		SLAStandardMinutes: c.SLAStandardMinutes,
		Precedence:         c.Precedence,
		FacilityIDs:        c.FacilityIDs,
		Active:             c.Active,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
