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

// Contract represents the maintenance contract database model.
// Coverage is calendar-date granularity, inclusive on both ends.
type Contract struct {
	ID                 uuid.UUID   `db:"id"`
	TenantID           uuid.UUID   `db:"tenant_id"`
	Title              string      `db:"title"`
	ServiceType        string      `db:"service_type"`
	StartDate          time.Time   `db:"start_date"`
	EndDate            time.Time   `db:"end_date"`
	IntervalMonths     int         `db:"interval_months"`
	SLACriticalMinutes *int        `db:"sla_critical_minutes"`
	SLAStandardMinutes *int        `db:"sla_standard_minutes"`
	Precedence         int         `db:"precedence"`
	FacilityIDs        []uuid.UUID `db:"facility_ids"`
	Active             bool        `db:"active"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

// Repository provides database operations for contracts.
type Repository struct {
	pool *pgxpool.Pool
}

const contractNotFoundMsg = "contract not found"

const contractColumns = `id, tenant_id, title, service_type, start_date, end_date,
	interval_months, sla_critical_minutes, sla_standard_minutes, precedence,
	facility_ids, active, created_at, updated_at`

// New creates a new contracts repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new contract.
func (r *Repository) Create(ctx context.Context, contract *Contract) error {
	query := `
		INSERT INTO contracts (
			id, tenant_id, title, service_type, start_date, end_date, interval_months,
			sla_critical_minutes, sla_standard_minutes, precedence, facility_ids, active,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := r.pool.Exec(ctx, query,
		contract.ID, contract.TenantID, contract.Title, contract.ServiceType,
		contract.StartDate, contract.EndDate, contract.IntervalMonths,
		contract.SLACriticalMinutes, contract.SLAStandardMinutes, contract.Precedence,
		contract.FacilityIDs, contract.Active, contract.CreatedAt, contract.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}

	return nil
}

// GetByID retrieves a contract by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1 AND tenant_id = $2`

	row := r.pool.QueryRow(ctx, query, id, tenantID)
	contract, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(contractNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	return contract, nil
}

// ActiveContractsCovering returns all active contracts whose coverage window
// includes asOf (inclusive dates) and whose facility set contains facilityID.
// Ordering is not guaranteed; callers must not rely on it.
func (r *Repository) ActiveContractsCovering(ctx context.Context, tenantID, facilityID uuid.UUID, asOf time.Time) ([]Contract, error) {
	query := `SELECT ` + contractColumns + `
		FROM contracts
		WHERE tenant_id = $1
		  AND active
		  AND $2 = ANY(facility_ids)
		  AND start_date <= $3::date
		  AND end_date >= $3::date`

	rows, err := r.pool.Query(ctx, query, tenantID, facilityID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query covering contracts: %w", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

// ListActive returns all active contracts for a tenant.
func (r *Repository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE tenant_id = $1 AND active`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

// Update persists mutable contract fields (status, precedence, coverage, SLA overrides).
func (r *Repository) Update(ctx context.Context, contract *Contract) error {
	query := `
		UPDATE contracts
		SET title = $3, service_type = $4, start_date = $5, end_date = $6,
		    interval_months = $7, sla_critical_minutes = $8, sla_standard_minutes = $9,
		    precedence = $10, facility_ids = $11, active = $12, updated_at = $13
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.pool.Exec(ctx, query,
		contract.ID, contract.TenantID, contract.Title, contract.ServiceType,
		contract.StartDate, contract.EndDate, contract.IntervalMonths,
		contract.SLACriticalMinutes, contract.SLAStandardMinutes, contract.Precedence,
		contract.FacilityIDs, contract.Active, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractNotFoundMsg)
	}

	return nil
}

// Deactivate soft-deletes a contract by clearing its active flag. Contracts are
// never hard-deleted while generated visits reference them.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	query := `UPDATE contracts SET active = FALSE, updated_at = $3 WHERE id = $1 AND tenant_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, tenantID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to deactivate contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(contractNotFoundMsg)
	}

	return nil
}

// TenantsWithActiveContracts returns every tenant that has at least one
// active contract. Drives the periodic schedule-generation dispatch.
func (r *Repository) TenantsWithActiveContracts(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM contracts WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants with active contracts: %w", err)
	}
	defer rows.Close()

	tenants := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

func scanContract(row pgx.Row) (*Contract, error) {
	var c Contract
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Title, &c.ServiceType, &c.StartDate, &c.EndDate,
		&c.IntervalMonths, &c.SLACriticalMinutes, &c.SLAStandardMinutes, &c.Precedence,
		&c.FacilityIDs, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanContracts(rows pgx.Rows) ([]Contract, error) {
	contracts := make([]Contract, 0)
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, *contract)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contracts: %w", err)
	}
	return contracts, nil
}
