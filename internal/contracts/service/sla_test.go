package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldservice_backend/internal/contracts/repository"
	"fieldservice_backend/internal/contracts/transport"
	"fieldservice_backend/platform/apperr"
	"fieldservice_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// fakeStore serves a fixed candidate set or a fixed error.
type fakeStore struct {
	Store
	candidates []repository.Contract
	err        error
}

func (f *fakeStore) ActiveContractsCovering(_ context.Context, _, _ uuid.UUID, _ time.Time) ([]repository.Contract, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakeSLAConfig struct {
	defaultCritical time.Duration
	failOpen        bool
}

func (f fakeSLAConfig) GetSLADefaultCritical() time.Duration { return f.defaultCritical }
func (f fakeSLAConfig) GetSLALookupFailOpen() bool           { return f.failOpen }

func newTestService(store Store, cfg fakeSLAConfig) *Service {
	clock := clockwork.NewFakeClockAt(date(2025, time.June, 1))
	return New(store, cfg, logger.New("test"), nil, clock)
}

func intPtr(v int) *int { return &v }

func TestResolveSLANoCoverageDefaults(t *testing.T) {
	svc := newTestService(&fakeStore{}, fakeSLAConfig{defaultCritical: 6 * time.Hour})
	tenantID, facilityID := uuid.New(), uuid.New()

	res, err := svc.ResolveSLA(context.Background(), tenantID, facilityID, transport.PriorityCritical, "", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SLA == nil || *res.SLA != 6*time.Hour {
		t.Fatalf("expected 6h default for critical, got %v", res.SLA)
	}
	if res.Source != SLASourceDefault {
		t.Fatalf("expected default source, got %s", res.Source)
	}

	res, err = svc.ResolveSLA(context.Background(), tenantID, facilityID, transport.PriorityStandard, "", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SLA != nil {
		t.Fatalf("expected no SLA for standard with no coverage, got %v", *res.SLA)
	}
	if res.Source != SLASourceNone {
		t.Fatalf("expected none source, got %s", res.Source)
	}
}

func TestResolveSLAUsesWinnerOverride(t *testing.T) {
	winner := makeContract("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", 5, date(2025, time.March, 1), "hvac")
	winner.SLACriticalMinutes = intPtr(120)
	loser := makeContract("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", 5, date(2025, time.January, 1), "hvac")
	loser.SLACriticalMinutes = intPtr(999)

	svc := newTestService(
		&fakeStore{candidates: []repository.Contract{loser, winner}},
		fakeSLAConfig{defaultCritical: 6 * time.Hour},
	)

	res, err := svc.ResolveSLA(context.Background(), uuid.New(), uuid.New(), transport.PriorityCritical, "", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Contract == nil || res.Contract.ID != winner.ID {
		t.Fatalf("expected later-start contract to govern, got %v", res.Contract)
	}
	if res.SLA == nil || *res.SLA != 2*time.Hour {
		t.Fatalf("expected 2h override, got %v", res.SLA)
	}
	if res.Source != SLASourceOverride {
		t.Fatalf("expected override source, got %s", res.Source)
	}
}

func TestResolveSLAWinnerWithoutOverrideFallsBackToDefault(t *testing.T) {
	winner := makeContract("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", 5, date(2025, time.March, 1), "hvac")

	svc := newTestService(
		&fakeStore{candidates: []repository.Contract{winner}},
		fakeSLAConfig{defaultCritical: 6 * time.Hour},
	)

	res, err := svc.ResolveSLA(context.Background(), uuid.New(), uuid.New(), transport.PriorityCritical, "", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Contract == nil || res.Contract.ID != winner.ID {
		t.Fatalf("expected winner to be reported even without an override")
	}
	if res.SLA == nil || *res.SLA != 6*time.Hour {
		t.Fatalf("expected 6h default, got %v", res.SLA)
	}
	if res.Source != SLASourceDefault {
		t.Fatalf("expected default source, got %s", res.Source)
	}

	// Standard tier: a governing contract without a standard override still
	// yields no SLA.
	res, err = svc.ResolveSLA(context.Background(), uuid.New(), uuid.New(), transport.PriorityStandard, "", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SLA != nil {
		t.Fatalf("expected no SLA for standard tier, got %v", *res.SLA)
	}
}

func TestResolveSLALookupFailurePropagates(t *testing.T) {
	svc := newTestService(
		&fakeStore{err: errors.New("connection refused")},
		fakeSLAConfig{defaultCritical: 6 * time.Hour},
	)

	_, err := svc.ResolveSLA(context.Background(), uuid.New(), uuid.New(), transport.PriorityCritical, "", time.Time{})
	if err == nil {
		t.Fatalf("expected lookup failure to propagate, got nil")
	}
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable kind, got %v", err)
	}
}

func TestResolveSLALookupFailureFailOpen(t *testing.T) {
	svc := newTestService(
		&fakeStore{err: errors.New("connection refused")},
		fakeSLAConfig{defaultCritical: 6 * time.Hour, failOpen: true},
	)

	res, err := svc.ResolveSLA(context.Background(), uuid.New(), uuid.New(), transport.PriorityCritical, "", time.Time{})
	if err != nil {
		t.Fatalf("fail-open policy must substitute defaults, got error: %v", err)
	}
	if res.SLA == nil || *res.SLA != 6*time.Hour {
		t.Fatalf("expected 6h default under fail-open, got %v", res.SLA)
	}
}

func TestResolveSLARequiresTenant(t *testing.T) {
	svc := newTestService(&fakeStore{}, fakeSLAConfig{defaultCritical: 6 * time.Hour})

	_, err := svc.ResolveSLA(context.Background(), uuid.Nil, uuid.New(), transport.PriorityCritical, "", time.Time{})
	if err == nil {
		t.Fatalf("expected error for missing tenant context")
	}
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request kind, got %v", err)
	}
}

func TestResolveSLARejectsUnknownPriority(t *testing.T) {
	svc := newTestService(&fakeStore{}, fakeSLAConfig{defaultCritical: 6 * time.Hour})

	_, err := svc.ResolveSLA(context.Background(), uuid.New(), uuid.New(), transport.Priority("urgent"), "", time.Time{})
	if err == nil {
		t.Fatalf("expected error for unknown priority tier")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
}

func TestResolveSLARepeatedCallsAreDeterministic(t *testing.T) {
	a := makeContract("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", 5, date(2025, time.January, 1), "hvac")
	b := makeContract("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", 5, date(2025, time.March, 1), "hvac")
	b.SLACriticalMinutes = intPtr(240)

	forward := newTestService(&fakeStore{candidates: []repository.Contract{a, b}}, fakeSLAConfig{defaultCritical: 6 * time.Hour})
	reversed := newTestService(&fakeStore{candidates: []repository.Contract{b, a}}, fakeSLAConfig{defaultCritical: 6 * time.Hour})

	tenantID, facilityID := uuid.New(), uuid.New()
	r1, err := forward.ResolveSLA(context.Background(), tenantID, facilityID, transport.PriorityCritical, "", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := reversed.ResolveSLA(context.Background(), tenantID, facilityID, transport.PriorityCritical, "", time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r1.Contract.ID != r2.Contract.ID {
		t.Fatalf("store ordering changed the winner: %v vs %v", r1.Contract.ID, r2.Contract.ID)
	}
	if *r1.SLA != *r2.SLA || *r1.SLA != 4*time.Hour {
		t.Fatalf("expected 4h override from B regardless of ordering, got %v and %v", r1.SLA, r2.SLA)
	}
}
