// Package realtime reconciles pm_visits change events into the in-memory
// visit collection and emits rate-limited user notifications.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"fieldservice_backend/internal/pm/repository"

	"github.com/google/uuid"
)

// visitRow mirrors the JSON row image the pm_visits trigger emits. Dates and
// timestamps arrive as strings and are parsed here, exactly once; nothing
// loosely-typed travels past this boundary.
type visitRow struct {
	ID               uuid.UUID  `json:"id"`
	TenantID         uuid.UUID  `json:"tenant_id"`
	ContractID       uuid.UUID  `json:"contract_id"`
	FacilityID       uuid.UUID  `json:"facility_id"`
	FacilityName     string     `json:"facility_name"`
	ScheduledDate    string     `json:"scheduled_date"`
	Status           string     `json:"status"`
	CompletedDate    *string    `json:"completed_date"`
	AssignedEngineer *string    `json:"assigned_engineer"`
	Notes            *string    `json:"notes"`
	ChecklistID      *uuid.UUID `json:"checklist_id"`
	AttachmentRefs   []string   `json:"attachment_refs"`
	CreatedAt        string     `json:"created_at"`
	UpdatedAt        string     `json:"updated_at"`
}

// DecodeVisit parses a row image into the visit model.
func DecodeVisit(image json.RawMessage) (repository.PMVisit, error) {
	var row visitRow
	if err := json.Unmarshal(image, &row); err != nil {
		return repository.PMVisit{}, fmt.Errorf("malformed visit row image: %w", err)
	}
	if row.ID == uuid.Nil {
		return repository.PMVisit{}, fmt.Errorf("visit row image missing id")
	}

	scheduled, err := parseDate(row.ScheduledDate)
	if err != nil {
		return repository.PMVisit{}, fmt.Errorf("visit %s: bad scheduled_date: %w", row.ID, err)
	}
	createdAt, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return repository.PMVisit{}, fmt.Errorf("visit %s: bad created_at: %w", row.ID, err)
	}
	updatedAt, err := parseTimestamp(row.UpdatedAt)
	if err != nil {
		return repository.PMVisit{}, fmt.Errorf("visit %s: bad updated_at: %w", row.ID, err)
	}

	var completed *time.Time
	if row.CompletedDate != nil {
		t, err := parseTimestamp(*row.CompletedDate)
		if err != nil {
			return repository.PMVisit{}, fmt.Errorf("visit %s: bad completed_date: %w", row.ID, err)
		}
		completed = &t
	}

	return repository.PMVisit{
		ID:               row.ID,
		TenantID:         row.TenantID,
		ContractID:       row.ContractID,
		FacilityID:       row.FacilityID,
		FacilityName:     row.FacilityName,
		ScheduledDate:    scheduled,
		Status:           row.Status,
		CompletedDate:    completed,
		AssignedEngineer: row.AssignedEngineer,
		Notes:            row.Notes,
		ChecklistID:      row.ChecklistID,
		AttachmentRefs:   row.AttachmentRefs,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return t, nil
	}
	// Plain timestamp without zone, as to_jsonb renders for TIMESTAMP columns.
	return time.Parse("2006-01-02T15:04:05.999999", value)
}
