package service

import (
	"context"
	"testing"
	"time"

	contractrepo "fieldservice_backend/internal/contracts/repository"
	"fieldservice_backend/internal/pm/repository"
	"fieldservice_backend/internal/pm/transport"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type fakeScheduleConfig struct{ horizonMonths int }

func (c fakeScheduleConfig) GetPMHorizonMonths() int { return c.horizonMonths }

type fakeStore struct {
	Store
	visits        map[uuid.UUID]*repository.PMVisit
	upserted      []repository.PMVisit
	statusUpdates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{visits: make(map[uuid.UUID]*repository.PMVisit)}
}

func (s *fakeStore) UpsertMany(_ context.Context, visits []repository.PMVisit) (int, error) {
	inserted := 0
	for _, v := range visits {
		if _, exists := s.visits[v.ID]; !exists {
			visit := v
			s.visits[v.ID] = &visit
			inserted++
		}
	}
	s.upserted = append(s.upserted, visits...)
	return inserted, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*repository.PMVisit, error) {
	v, ok := s.visits[id]
	if !ok || v.TenantID != tenantID {
		return nil, apperr.NotFound("pm visit not found")
	}
	visit := *v
	return &visit, nil
}

func (s *fakeStore) ListByTenant(_ context.Context, tenantID uuid.UUID, _ int) ([]repository.PMVisit, error) {
	result := make([]repository.PMVisit, 0)
	for _, v := range s.visits {
		if v.TenantID == tenantID {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id, tenantID uuid.UUID, status string, completedDate *time.Time) error {
	v, ok := s.visits[id]
	if !ok || v.TenantID != tenantID {
		return apperr.NotFound("pm visit not found")
	}
	v.Status = status
	v.CompletedDate = completedDate
	s.statusUpdates++
	return nil
}

func (s *fakeStore) UpdateAssignment(_ context.Context, id, tenantID uuid.UUID, engineer *string) error {
	v, ok := s.visits[id]
	if !ok || v.TenantID != tenantID {
		return apperr.NotFound("pm visit not found")
	}
	v.AssignedEngineer = engineer
	return nil
}

type fakeContracts struct {
	contracts map[uuid.UUID]*contractrepo.Contract
}

func (f *fakeContracts) GetByID(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*contractrepo.Contract, error) {
	c, ok := f.contracts[id]
	if !ok || c.TenantID != tenantID {
		return nil, apperr.NotFound("contract not found")
	}
	contract := *c
	return &contract, nil
}

func (f *fakeContracts) ListActive(_ context.Context, tenantID uuid.UUID) ([]contractrepo.Contract, error) {
	result := make([]contractrepo.Contract, 0)
	for _, c := range f.contracts {
		if c.TenantID == tenantID && c.Active {
			result = append(result, *c)
		}
	}
	return result, nil
}

func newTestService(store *fakeStore, contracts *fakeContracts, now time.Time) *Service {
	return New(store, contracts, fakeScheduleConfig{horizonMonths: 12},
		logger.New("test"), nil, clockwork.NewFakeClockAt(now))
}

func seedVisit(store *fakeStore, tenantID uuid.UUID, status string) uuid.UUID {
	id := uuid.New()
	store.visits[id] = &repository.PMVisit{
		ID:            id,
		TenantID:      tenantID,
		ContractID:    uuid.New(),
		FacilityID:    uuid.New(),
		ScheduledDate: time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		Status:        status,
	}
	return id
}

func TestGenerateForContractPersistsVisits(t *testing.T) {
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	tenantID := uuid.New()
	contractID := uuid.New()

	contracts := &fakeContracts{contracts: map[uuid.UUID]*contractrepo.Contract{
		contractID: {
			ID:             contractID,
			TenantID:       tenantID,
			StartDate:      time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC),
			IntervalMonths: 3,
			FacilityIDs:    []uuid.UUID{uuid.New(), uuid.New()},
			Active:         true,
		},
	}}
	store := newFakeStore()
	svc := newTestService(store, contracts, now)

	resp, err := svc.GenerateForContract(context.Background(), contractID, tenantID)
	if err != nil {
		t.Fatalf("GenerateForContract returned error: %v", err)
	}

	// Quarterly from Jun 15 within a 12-month horizon: Jun, Sep, Dec, Mar,
	// for each of the two facilities.
	if resp.Generated != 8 {
		t.Fatalf("expected 8 generated visits, got %d", resp.Generated)
	}
	if resp.Inserted != 8 {
		t.Fatalf("expected 8 inserted visits, got %d", resp.Inserted)
	}
}

func TestGenerateForContractRejectsInactive(t *testing.T) {
	now := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	tenantID := uuid.New()
	contractID := uuid.New()

	contracts := &fakeContracts{contracts: map[uuid.UUID]*contractrepo.Contract{
		contractID: {
			ID:             contractID,
			TenantID:       tenantID,
			StartDate:      now,
			EndDate:        now.AddDate(1, 0, 0),
			IntervalMonths: 1,
			FacilityIDs:    []uuid.UUID{uuid.New()},
			Active:         false,
		},
	}}
	svc := newTestService(newFakeStore(), contracts, now)

	_, err := svc.GenerateForContract(context.Background(), contractID, tenantID)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for inactive contract, got %v", err)
	}
}

func TestUpdateStatusCompletedStampsDate(t *testing.T) {
	now := time.Date(2025, time.June, 10, 14, 30, 0, 0, time.UTC)
	tenantID := uuid.New()
	store := newFakeStore()
	id := seedVisit(store, tenantID, repository.StatusScheduled)
	svc := newTestService(store, &fakeContracts{}, now)

	resp, err := svc.UpdateStatus(context.Background(), id, tenantID, transport.VisitStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if resp.Status != repository.StatusCompleted {
		t.Fatalf("expected completed status, got %q", resp.Status)
	}
	if resp.CompletedDate == nil || !resp.CompletedDate.Equal(now) {
		t.Fatalf("expected completed date %v, got %v", now, resp.CompletedDate)
	}
}

func TestUpdateStatusRejectsTerminalTransition(t *testing.T) {
	now := time.Date(2025, time.June, 10, 14, 30, 0, 0, time.UTC)
	tenantID := uuid.New()
	store := newFakeStore()
	id := seedVisit(store, tenantID, repository.StatusCompleted)
	svc := newTestService(store, &fakeContracts{}, now)

	_, err := svc.UpdateStatus(context.Background(), id, tenantID, transport.VisitStatusScheduled)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for terminal visit, got %v", err)
	}
	if store.statusUpdates != 0 {
		t.Fatalf("terminal visit must not reach the store, got %d updates", store.statusUpdates)
	}
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	now := time.Date(2025, time.June, 10, 14, 30, 0, 0, time.UTC)
	tenantID := uuid.New()
	store := newFakeStore()
	id := seedVisit(store, tenantID, repository.StatusInProgress)
	svc := newTestService(store, &fakeContracts{}, now)

	resp, err := svc.UpdateStatus(context.Background(), id, tenantID, transport.VisitStatusInProgress)
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if resp.Status != repository.StatusInProgress {
		t.Fatalf("expected unchanged status, got %q", resp.Status)
	}
	if store.statusUpdates != 0 {
		t.Fatalf("same-status transition must not write, got %d updates", store.statusUpdates)
	}
}

func TestRefreshStateReplacesSnapshot(t *testing.T) {
	now := time.Date(2025, time.June, 10, 14, 30, 0, 0, time.UTC)
	tenantID := uuid.New()
	store := newFakeStore()
	seedVisit(store, tenantID, repository.StatusScheduled)
	seedVisit(store, tenantID, repository.StatusScheduled)
	seedVisit(store, uuid.New(), repository.StatusScheduled) // other tenant
	svc := newTestService(store, &fakeContracts{}, now)

	if err := svc.RefreshState(context.Background(), tenantID); err != nil {
		t.Fatalf("RefreshState returned error: %v", err)
	}
	if got := svc.States().For(tenantID).Len(); got != 2 {
		t.Fatalf("expected 2 visits in state, got %d", got)
	}
}
