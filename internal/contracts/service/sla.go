package service

import (
	"context"
	"time"

	"fieldservice_backend/internal/contracts/repository"
	"fieldservice_backend/internal/contracts/transport"
	"fieldservice_backend/platform/apperr"

	"github.com/google/uuid"
)

// SLASource identifies where a resolved SLA value came from.
type SLASource string

const (
	// SLASourceOverride means the governing contract defined an SLA for the tier.
	SLASourceOverride SLASource = "contract_override"
	// SLASourceDefault means the system default for the tier applied.
	SLASourceDefault SLASource = "system_default"
	// SLASourceNone means no SLA applies (standard tier without override).
	SLASourceNone SLASource = "none"
)

// SLAResolution is the outcome of an SLA lookup.
type SLAResolution struct {
	// Contract is the governing contract, nil when no active contract covers
	// the facility at the evaluation instant.
	Contract *repository.Contract
	// SLA is the applicable response duration, nil when no SLA applies.
	SLA    *time.Duration
	Source SLASource
}

// ResolveSLA selects the governing contract for a facility at asOf and
// derives the SLA duration for the given priority. An empty candidate set is
// a valid outcome and yields the system default for the tier; a failed
// coverage lookup is not, and propagates as an unavailable error unless the
// fail-open policy is enabled.
func (s *Service) ResolveSLA(ctx context.Context, tenantID, facilityID uuid.UUID, priority transport.Priority, serviceTypeHint string, asOf time.Time) (*SLAResolution, error) {
	if tenantID == uuid.Nil {
		return nil, apperr.BadRequest("tenant context is required for SLA resolution")
	}
	if !priority.Valid() {
		return nil, apperr.Validation("priority must be critical or standard")
	}
	if asOf.IsZero() {
		asOf = s.clock.Now().UTC()
	}

	candidates, err := s.repo.ActiveContractsCovering(ctx, tenantID, facilityID, asOf)
	if err != nil {
		if s.slaCfg.GetSLALookupFailOpen() {
			// Legacy availability policy: substitute tier defaults when the
			// store cannot be reached. Logged loudly since the result may
			// misstate a real contractual obligation.
			s.log.Warn("contract coverage lookup failed, falling back to tier default",
				"facility_id", facilityID, "error", err)
			return s.defaultResolution(priority), nil
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "contract coverage lookup failed", err)
	}

	winner := SelectGoverning(candidates, serviceTypeHint)
	if winner == nil {
		return s.defaultResolution(priority), nil
	}

	if override := overrideFor(winner, priority); override != nil {
		return &SLAResolution{Contract: winner, SLA: override, Source: SLASourceOverride}, nil
	}

	// A contract covering the facility does not force an SLA when it defines
	// none for the tier.
	res := s.defaultResolution(priority)
	res.Contract = winner
	return res, nil
}

func (s *Service) defaultResolution(priority transport.Priority) *SLAResolution {
	if priority == transport.PriorityCritical {
		d := s.slaCfg.GetSLADefaultCritical()
		return &SLAResolution{SLA: &d, Source: SLASourceDefault}
	}
	return &SLAResolution{Source: SLASourceNone}
}

func overrideFor(c *repository.Contract, priority transport.Priority) *time.Duration {
	var minutes *int
	switch priority {
	case transport.PriorityCritical:
		minutes = c.SLACriticalMinutes
	case transport.PriorityStandard:
		minutes = c.SLAStandardMinutes
	}
	if minutes == nil {
		return nil
	}
	d := time.Duration(*minutes) * time.Minute
	return &d
}
