package service

import (
	"testing"
	"time"

	"fieldservice_backend/internal/contracts/repository"

	"github.com/google/uuid"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func makeContract(id string, precedence int, start time.Time, serviceType string) repository.Contract {
	return repository.Contract{
		ID:             uuid.MustParse(id),
		TenantID:       uuid.New(),
		Title:          "test contract",
		ServiceType:    serviceType,
		StartDate:      start,
		EndDate:        start.AddDate(1, 0, 0),
		IntervalMonths: 3,
		Precedence:     precedence,
		Active:         true,
	}
}

func TestSelectGoverningEmptySet(t *testing.T) {
	if got := SelectGoverning(nil, ""); got != nil {
		t.Fatalf("expected nil winner for empty candidate set, got %v", got.ID)
	}
}

func TestSelectGoverningHigherPrecedenceWins(t *testing.T) {
	low := makeContract("11111111-1111-1111-1111-111111111111", 1, date(2025, time.January, 1), "hvac")
	high := makeContract("22222222-2222-2222-2222-222222222222", 10, date(2024, time.June, 1), "hvac")

	winner := SelectGoverning([]repository.Contract{low, high}, "")
	if winner == nil || winner.ID != high.ID {
		t.Fatalf("expected high-precedence contract to win, got %v", winner)
	}
}

func TestSelectGoverningLaterStartBreaksPrecedenceTie(t *testing.T) {
	// Contracts A and B both have precedence 5; B starts later and must win.
	a := makeContract("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", 5, date(2025, time.January, 1), "hvac")
	b := makeContract("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", 5, date(2025, time.March, 1), "hvac")

	for _, candidates := range [][]repository.Contract{{a, b}, {b, a}} {
		winner := SelectGoverning(candidates, "")
		if winner == nil || winner.ID != b.ID {
			t.Fatalf("expected later-start contract B to win, got %v", winner)
		}
	}
}

func TestSelectGoverningLowerIDBreaksFullTie(t *testing.T) {
	start := date(2025, time.February, 1)
	lower := makeContract("00000000-0000-0000-0000-000000000001", 3, start, "hvac")
	higher := makeContract("ffffffff-ffff-ffff-ffff-ffffffffffff", 3, start, "hvac")

	for _, candidates := range [][]repository.Contract{{lower, higher}, {higher, lower}} {
		winner := SelectGoverning(candidates, "")
		if winner == nil || winner.ID != lower.ID {
			t.Fatalf("expected lexicographically smaller ID to win, got %v", winner)
		}
	}
}

func TestSelectGoverningDeterministicAcrossOrderings(t *testing.T) {
	contracts := []repository.Contract{
		makeContract("11111111-0000-0000-0000-000000000000", 2, date(2025, time.January, 15), "hvac"),
		makeContract("22222222-0000-0000-0000-000000000000", 7, date(2024, time.November, 1), "electrical"),
		makeContract("33333333-0000-0000-0000-000000000000", 7, date(2025, time.February, 1), "plumbing"),
		makeContract("44444444-0000-0000-0000-000000000000", 7, date(2025, time.February, 1), "hvac"),
	}

	orderings := [][]int{
		{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1},
	}

	var expected uuid.UUID
	for i, order := range orderings {
		candidates := make([]repository.Contract, 0, len(contracts))
		for _, idx := range order {
			candidates = append(candidates, contracts[idx])
		}
		winner := SelectGoverning(candidates, "")
		if winner == nil {
			t.Fatalf("ordering %d: expected a winner", i)
		}
		if i == 0 {
			expected = winner.ID
			continue
		}
		if winner.ID != expected {
			t.Fatalf("ordering %d: winner %v differs from first ordering's winner %v", i, winner.ID, expected)
		}
	}
}

func TestSelectGoverningServiceTypeHintNarrows(t *testing.T) {
	hvac := makeContract("11111111-1111-1111-1111-111111111111", 1, date(2025, time.January, 1), "HVAC")
	elec := makeContract("22222222-2222-2222-2222-222222222222", 9, date(2025, time.January, 1), "electrical")

	// Hint matches the lower-precedence contract case-insensitively; narrowing
	// must happen before ranking.
	winner := SelectGoverning([]repository.Contract{hvac, elec}, "hvac")
	if winner == nil || winner.ID != hvac.ID {
		t.Fatalf("expected hint-matched contract to win, got %v", winner)
	}
}

func TestSelectGoverningUnmatchedHintIgnored(t *testing.T) {
	hvac := makeContract("11111111-1111-1111-1111-111111111111", 1, date(2025, time.January, 1), "hvac")
	elec := makeContract("22222222-2222-2222-2222-222222222222", 9, date(2025, time.January, 1), "electrical")

	winner := SelectGoverning([]repository.Contract{hvac, elec}, "landscaping")
	if winner == nil || winner.ID != elec.ID {
		t.Fatalf("expected unmatched hint to be ignored and full set ranked, got %v", winner)
	}
}

func TestCompareContractsIsAntisymmetric(t *testing.T) {
	a := makeContract("aaaaaaaa-0000-0000-0000-000000000000", 5, date(2025, time.January, 1), "hvac")
	b := makeContract("bbbbbbbb-0000-0000-0000-000000000000", 5, date(2025, time.March, 1), "hvac")

	if CompareContracts(a, b) >= 0 == (CompareContracts(b, a) >= 0) {
		t.Fatalf("comparator must order a and b oppositely: %d vs %d",
			CompareContracts(a, b), CompareContracts(b, a))
	}
	if CompareContracts(a, a) != 0 {
		t.Fatalf("comparator must report equality for identical contracts")
	}
}
