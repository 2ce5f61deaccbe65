package schedule

import (
	"testing"
	"time"

	contractrepo "fieldservice_backend/internal/contracts/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func testContract(start, end time.Time, intervalMonths int, facilities int) contractrepo.Contract {
	ids := make([]uuid.UUID, facilities)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return contractrepo.Contract{
		ID:             uuid.New(),
		TenantID:       uuid.New(),
		Title:          "quarterly maintenance",
		ServiceType:    "hvac",
		StartDate:      start,
		EndDate:        end,
		IntervalMonths: intervalMonths,
		FacilityIDs:    ids,
		Active:         true,
	}
}

func generatorAt(now time.Time) *Generator {
	return New(clockwork.NewFakeClockAt(now))
}

func TestGenerateMonthlyClampsDayOfMonth(t *testing.T) {
	// Monthly contract anchored on Jan 31. Clamp rule: the day is clamped to
	// the last valid day of each target month without drifting, so March is
	// the 31st again, not the 28th.
	contract := testContract(date(2025, time.January, 31), date(2025, time.December, 31), 1, 1)
	gen := generatorAt(date(2025, time.January, 1))

	visits, err := gen.Generate(contract, date(2025, time.June, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
		date(2025, time.May, 31),
	}
	if len(visits) != len(want) {
		t.Fatalf("expected %d visits, got %d", len(want), len(visits))
	}
	for i, w := range want {
		if !visits[i].ScheduledDate.Equal(w) {
			t.Fatalf("visit %d: expected %s, got %s", i, w.Format("2006-01-02"), visits[i].ScheduledDate.Format("2006-01-02"))
		}
	}
}

func TestGenerateQuarterlyAlignment(t *testing.T) {
	// Every date must be exactly anchor + k*3 months, never drifting.
	anchor := date(2025, time.February, 15)
	contract := testContract(anchor, date(2026, time.December, 31), 3, 1)
	gen := generatorAt(date(2025, time.January, 1))

	visits, err := gen.Generate(contract, date(2026, time.February, 28))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		date(2025, time.February, 15),
		date(2025, time.May, 15),
		date(2025, time.August, 15),
		date(2025, time.November, 15),
		date(2026, time.February, 15),
	}
	if len(visits) != len(want) {
		t.Fatalf("expected %d visits, got %d", len(want), len(visits))
	}
	for i, w := range want {
		if !visits[i].ScheduledDate.Equal(w) {
			t.Fatalf("visit %d: expected %s, got %s", i, w, visits[i].ScheduledDate)
		}
	}
}

func TestGenerateSkipsOccurrencesBeforeNow(t *testing.T) {
	contract := testContract(date(2025, time.January, 1), date(2025, time.December, 31), 1, 1)
	gen := generatorAt(date(2025, time.April, 10))

	visits, err := gen.Generate(contract, date(2025, time.June, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		date(2025, time.May, 1),
		date(2025, time.June, 1),
	}
	if len(visits) != len(want) {
		t.Fatalf("expected %d visits, got %d: %v", len(want), len(visits), visits)
	}
	for i, w := range want {
		if !visits[i].ScheduledDate.Equal(w) {
			t.Fatalf("visit %d: expected %s, got %s", i, w, visits[i].ScheduledDate)
		}
	}
}

func TestGenerateEmitsOneVisitPerFacility(t *testing.T) {
	contract := testContract(date(2025, time.March, 1), date(2025, time.December, 31), 6, 3)
	gen := generatorAt(date(2025, time.March, 1))

	visits, err := gen.Generate(contract, date(2025, time.October, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two occurrences (Mar 1, Sep 1) for three facilities.
	if len(visits) != 6 {
		t.Fatalf("expected 6 visits, got %d", len(visits))
	}

	perDate := make(map[time.Time]map[uuid.UUID]bool)
	for _, v := range visits {
		if perDate[v.ScheduledDate] == nil {
			perDate[v.ScheduledDate] = make(map[uuid.UUID]bool)
		}
		if perDate[v.ScheduledDate][v.FacilityID] {
			t.Fatalf("duplicate (facility, date) pair: %s %s", v.FacilityID, v.ScheduledDate)
		}
		perDate[v.ScheduledDate][v.FacilityID] = true
	}
	for d, facilities := range perDate {
		if len(facilities) != 3 {
			t.Fatalf("expected 3 facilities on %s, got %d", d, len(facilities))
		}
	}
}

func TestGenerateExpiredContractYieldsEmpty(t *testing.T) {
	contract := testContract(date(2023, time.January, 1), date(2023, time.December, 31), 1, 2)
	gen := generatorAt(date(2025, time.June, 1))

	visits, err := gen.Generate(contract, date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("expired contract is not an error: %v", err)
	}
	if len(visits) != 0 {
		t.Fatalf("expected empty result for expired contract, got %d visits", len(visits))
	}
}

func TestGenerateNoFacilitiesYieldsEmpty(t *testing.T) {
	contract := testContract(date(2025, time.January, 1), date(2025, time.December, 31), 1, 0)
	gen := generatorAt(date(2025, time.January, 1))

	visits, err := gen.Generate(contract, date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("facility-less contract is not an error: %v", err)
	}
	if len(visits) != 0 {
		t.Fatalf("expected empty result, got %d visits", len(visits))
	}
}

func TestGenerateRejectsMalformedInterval(t *testing.T) {
	contract := testContract(date(2025, time.January, 1), date(2025, time.December, 31), 2, 1)
	gen := generatorAt(date(2025, time.January, 1))

	if _, err := gen.Generate(contract, date(2025, time.December, 31)); err == nil {
		t.Fatalf("expected malformed interval to be rejected before generation")
	}
}

func TestGenerateCapsAtContractEnd(t *testing.T) {
	contract := testContract(date(2025, time.January, 1), date(2025, time.March, 31), 1, 1)
	gen := generatorAt(date(2025, time.January, 1))

	visits, err := gen.Generate(contract, date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range visits {
		if v.ScheduledDate.After(contract.EndDate) {
			t.Fatalf("visit scheduled past coverage end: %s", v.ScheduledDate)
		}
	}
	if len(visits) != 3 {
		t.Fatalf("expected 3 visits (Jan, Feb, Mar), got %d", len(visits))
	}
}

func TestGenerateIsRepeatable(t *testing.T) {
	// Two runs over the same contract produce the same (facility, date)
	// pairs; the store's conflict key makes re-persisting them a no-op.
	contract := testContract(date(2025, time.January, 31), date(2025, time.December, 31), 3, 2)
	gen := generatorAt(date(2025, time.January, 1))

	first, err := gen.Generate(contract, date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := gen.Generate(contract, date(2025, time.December, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("generation is not repeatable: %d vs %d visits", len(first), len(second))
	}
	for i := range first {
		if first[i].FacilityID != second[i].FacilityID || !first[i].ScheduledDate.Equal(second[i].ScheduledDate) {
			t.Fatalf("visit %d differs across runs", i)
		}
	}
}
