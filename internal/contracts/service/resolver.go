package service

import (
	"bytes"
	"strings"

	"fieldservice_backend/internal/contracts/repository"
)

// CompareContracts is the governing-contract total order. It returns a
// negative value when a governs over b, positive when b governs over a.
// Ranking: higher precedence first; on tie, later coverage start first; on
// tie, smaller contract ID first. IDs are unique, so the order is strict and
// the winner is independent of input order.
func CompareContracts(a, b repository.Contract) int {
	if a.Precedence != b.Precedence {
		if a.Precedence > b.Precedence {
			return -1
		}
		return 1
	}
	if !a.StartDate.Equal(b.StartDate) {
		if a.StartDate.After(b.StartDate) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// SelectGoverning picks exactly one governing contract from the candidate
// set, or nil when the set is empty. When serviceTypeHint is non-empty and at
// least one candidate's service type matches it case-insensitively, the
// candidates are narrowed to those matches first; a hint that matches nothing
// is ignored, not an error.
func SelectGoverning(candidates []repository.Contract, serviceTypeHint string) *repository.Contract {
	pool := narrowByServiceType(candidates, serviceTypeHint)
	if len(pool) == 0 {
		return nil
	}

	winner := pool[0]
	for _, c := range pool[1:] {
		if CompareContracts(c, winner) < 0 {
			winner = c
		}
	}
	return &winner
}

func narrowByServiceType(candidates []repository.Contract, hint string) []repository.Contract {
	if hint == "" {
		return candidates
	}

	matches := make([]repository.Contract, 0, len(candidates))
	for _, c := range candidates {
		if strings.EqualFold(c.ServiceType, hint) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return candidates
	}
	return matches
}
