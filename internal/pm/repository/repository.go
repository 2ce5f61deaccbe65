package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldservice_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PMVisit represents a scheduled preventive-maintenance visit. Scheduled
// dates are always produced by the schedule generator's recurrence
// arithmetic; the repository never invents dates.
type PMVisit struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	TenantID         uuid.UUID  `db:"tenant_id" json:"tenantId"`
	ContractID       uuid.UUID  `db:"contract_id" json:"contractId"`
	FacilityID       uuid.UUID  `db:"facility_id" json:"facilityId"`
	FacilityName     string     `db:"facility_name" json:"facilityName"`
	ScheduledDate    time.Time  `db:"scheduled_date" json:"scheduledDate"`
	Status           string     `db:"status" json:"status"`
	CompletedDate    *time.Time `db:"completed_date" json:"completedDate,omitempty"`
	AssignedEngineer *string    `db:"assigned_engineer" json:"assignedEngineer,omitempty"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	ChecklistID      *uuid.UUID `db:"checklist_id" json:"checklistId,omitempty"`
	AttachmentRefs   []string   `db:"attachment_refs" json:"attachmentRefs,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// Visit status values. Completed and cancelled are terminal.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// IsTerminalStatus reports whether a status permits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// Repository provides database operations for PM visits.
type Repository struct {
	pool *pgxpool.Pool
}

const visitColumns = `id, tenant_id, contract_id, facility_id, facility_name, scheduled_date,
	status, completed_date, assigned_engineer, notes, checklist_id, attachment_refs,
	created_at, updated_at`

// New creates a new PM visit repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertMany bulk-inserts generated visits. Rows colliding on
// (contract_id, facility_id, scheduled_date) are skipped, making schedule
// regeneration idempotent. Returns the number of rows actually inserted.
func (r *Repository) UpsertMany(ctx context.Context, visits []PMVisit) (int, error) {
	if len(visits) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO pm_visits (
			id, tenant_id, contract_id, facility_id, facility_name, scheduled_date,
			status, completed_date, assigned_engineer, notes, checklist_id, attachment_refs,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (contract_id, facility_id, scheduled_date) DO NOTHING`

	batch := &pgx.Batch{}
	for _, v := range visits {
		batch.Queue(query,
			v.ID, v.TenantID, v.ContractID, v.FacilityID, v.FacilityName, v.ScheduledDate,
			v.Status, v.CompletedDate, v.AssignedEngineer, v.Notes, v.ChecklistID, v.AttachmentRefs,
			v.CreatedAt, v.UpdatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range visits {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert pm visit: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// GetByID retrieves a visit by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*PMVisit, error) {
	query := `SELECT ` + visitColumns + ` FROM pm_visits WHERE id = $1 AND tenant_id = $2`

	row := r.pool.QueryRow(ctx, query, id, tenantID)
	visit, err := scanVisit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("pm visit not found")
		}
		return nil, fmt.Errorf("failed to get pm visit: %w", err)
	}

	return visit, nil
}

// ListByTenant returns visits for a tenant ordered by scheduled date
// descending, newest first, matching the order the UI collection holds them.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]PMVisit, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `SELECT ` + visitColumns + `
		FROM pm_visits
		WHERE tenant_id = $1
		ORDER BY scheduled_date DESC, created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pm visits: %w", err)
	}
	defer rows.Close()

	return scanVisits(rows)
}

// ListByContract returns all visits owned by a contract.
func (r *Repository) ListByContract(ctx context.Context, contractID, tenantID uuid.UUID) ([]PMVisit, error) {
	query := `SELECT ` + visitColumns + `
		FROM pm_visits
		WHERE contract_id = $1 AND tenant_id = $2
		ORDER BY scheduled_date ASC`

	rows, err := r.pool.Query(ctx, query, contractID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contract visits: %w", err)
	}
	defer rows.Close()

	return scanVisits(rows)
}

// UpdateStatus transitions a visit's status. Completion stamps the completed
// date; other transitions clear it.
func (r *Repository) UpdateStatus(ctx context.Context, id, tenantID uuid.UUID, status string, completedDate *time.Time) error {
	query := `
		UPDATE pm_visits
		SET status = $3, completed_date = $4, updated_at = $5
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, tenantID, status, completedDate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update pm visit status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("pm visit not found")
	}

	return nil
}

// UpdateAssignment sets or clears the assigned engineer.
func (r *Repository) UpdateAssignment(ctx context.Context, id, tenantID uuid.UUID, engineer *string) error {
	query := `UPDATE pm_visits SET assigned_engineer = $3, updated_at = $4 WHERE id = $1 AND tenant_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, tenantID, engineer, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update pm visit assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("pm visit not found")
	}

	return nil
}

// DeleteCancelledBefore removes cancelled visits whose scheduled date is
// older than the cutoff. Completed visits are kept as maintenance history.
func (r *Repository) DeleteCancelledBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM pm_visits WHERE status = $1 AND scheduled_date < $2::date`,
		StatusCancelled, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cancelled pm visits: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanVisit(row pgx.Row) (*PMVisit, error) {
	var v PMVisit
	err := row.Scan(
		&v.ID, &v.TenantID, &v.ContractID, &v.FacilityID, &v.FacilityName, &v.ScheduledDate,
		&v.Status, &v.CompletedDate, &v.AssignedEngineer, &v.Notes, &v.ChecklistID, &v.AttachmentRefs,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanVisits(rows pgx.Rows) ([]PMVisit, error) {
	visits := make([]PMVisit, 0)
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pm visit: %w", err)
		}
		visits = append(visits, *visit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pm visits: %w", err)
	}
	return visits, nil
}
