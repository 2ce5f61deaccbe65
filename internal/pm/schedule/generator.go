// Package schedule computes recurring PM visit dates from contract terms.
package schedule

import (
	"time"

	contractrepo "fieldservice_backend/internal/contracts/repository"
	contractsvc "fieldservice_backend/internal/contracts/service"
	pmrepo "fieldservice_backend/internal/pm/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Generator produces PM visits for a contract within a bounded horizon.
//
// Recurrence dates step from the contract's coverage start (the anchor) in
// whole-month intervals. Day-of-month overflow is clamped to the last valid
// day of the target month and never drifts: each occurrence is computed from
// the anchor, not from the previous occurrence, so a Jan 31 monthly anchor
// yields Feb 28 (or 29), then Mar 31, then Apr 30.
type Generator struct {
	clock clockwork.Clock
}

// New creates a new schedule generator.
func New(clock clockwork.Clock) *Generator {
	return &Generator{clock: clock}
}

// Generate returns one visit per covered facility per occurrence date in
// [today, horizonEnd], capped by the contract's coverage end. The horizon
// start is always "now". A contract with no facilities or already expired
// yields an empty result, not an error; malformed recurrence terms are
// rejected before any visit is emitted.
func (g *Generator) Generate(contract contractrepo.Contract, horizonEnd time.Time) ([]pmrepo.PMVisit, error) {
	if err := contractsvc.ValidateTerms(contract); err != nil {
		return nil, err
	}

	now := g.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	end := horizonEnd
	if contract.EndDate.Before(end) {
		end = contract.EndDate
	}
	if end.Before(today) || len(contract.FacilityIDs) == 0 {
		return []pmrepo.PMVisit{}, nil
	}

	visits := make([]pmrepo.PMVisit, 0)
	for k := 0; ; k++ {
		date := occurrence(contract.StartDate, k*contract.IntervalMonths)
		if date.After(end) {
			break
		}
		if date.Before(today) {
			continue
		}
		for _, facilityID := range contract.FacilityIDs {
			visits = append(visits, pmrepo.PMVisit{
				ID:            uuid.New(),
				TenantID:      contract.TenantID,
				ContractID:    contract.ID,
				FacilityID:    facilityID,
				ScheduledDate: date,
				Status:        pmrepo.StatusScheduled,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
	}

	return visits, nil
}

// occurrence shifts the anchor by a number of whole months, clamping the
// anchor's day of month to the last valid day of the target month.
func occurrence(anchor time.Time, months int) time.Time {
	year, month, day := anchor.Date()
	total := int(month) - 1 + months
	year += total / 12
	month = time.Month(total%12 + 1)

	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	// Day zero of the following month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
