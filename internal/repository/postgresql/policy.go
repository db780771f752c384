package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/policy"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
)

type policyRepository struct {
	db *database.DB
}

// GetEmployee implements policy.Repository.
func (r *policyRepository) GetEmployee(ctx context.Context, employeeID string, tenantID string) (policy.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, user_id, full_name, branch_id, shift_id, role, active
		FROM employees
		WHERE id = $1
		  AND tenant_id = $2
	`

	var emp policy.Employee
	err := q.QueryRow(ctx, query, employeeID, tenantID).Scan(
		&emp.ID, &emp.TenantID, &emp.UserID, &emp.FullName,
		&emp.BranchID, &emp.ShiftID, &emp.Role, &emp.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.Employee{}, policy.ErrEmployeeNotFound
		}
		return policy.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return emp, nil
}

// GetShift implements policy.Repository.
func (r *policyRepository) GetShift(ctx context.Context, shiftID string, tenantID string) (policy.Shift, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, name, start_time, end_time, grace_minutes, active
		FROM shifts
		WHERE id = $1
		  AND tenant_id = $2
	`

	var shift policy.Shift
	err := q.QueryRow(ctx, query, shiftID, tenantID).Scan(
		&shift.ID, &shift.TenantID, &shift.Name,
		&shift.StartTime, &shift.EndTime, &shift.GraceMinutes, &shift.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.Shift{}, policy.ErrNoShiftAssigned
		}
		return policy.Shift{}, fmt.Errorf("failed to get shift: %w", err)
	}

	return shift, nil
}

// GetBranch implements policy.Repository.
func (r *policyRepository) GetBranch(ctx context.Context, branchID string, tenantID string) (policy.Branch, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, name, latitude, longitude, radius_m
		FROM branches
		WHERE id = $1
		  AND tenant_id = $2
	`

	var branch policy.Branch
	err := q.QueryRow(ctx, query, branchID, tenantID).Scan(
		&branch.ID, &branch.TenantID, &branch.Name,
		&branch.Latitude, &branch.Longitude, &branch.RadiusM,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.Branch{}, policy.ErrNoLocationConfigured
		}
		return policy.Branch{}, fmt.Errorf("failed to get branch: %w", err)
	}

	return branch, nil
}

const settingsColumns = `
	tenant_id, geo_fence_radius_m, require_geo_validation, allow_mock_location,
	require_approval, regularization_window_days, freeze_day, qr_refresh_interval_min
`

func scanSettings(row pgx.Row) (policy.Settings, error) {
	var s policy.Settings
	err := row.Scan(
		&s.TenantID, &s.GeoFenceRadiusM, &s.RequireGeoValidation, &s.AllowMockLocation,
		&s.RequireApproval, &s.RegularizationWindowDays, &s.FreezeDay, &s.QRRefreshIntervalMin,
	)
	return s, err
}

// GetSettings implements policy.Repository.
func (r *policyRepository) GetSettings(ctx context.Context, tenantID string) (policy.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + settingsColumns + `
		FROM tenant_settings
		WHERE tenant_id = $1
	`

	s, err := scanSettings(q.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.Settings{}, policy.ErrSettingsNotFound
		}
		return policy.Settings{}, fmt.Errorf("failed to get tenant settings: %w", err)
	}

	return s, nil
}

// ListSettings implements policy.Repository.
func (r *policyRepository) ListSettings(ctx context.Context) ([]policy.Settings, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+settingsColumns+`
		FROM tenant_settings
		ORDER BY tenant_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant settings: %w", err)
	}
	defer rows.Close()

	var out []policy.Settings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant settings: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tenant settings: %w", err)
	}

	return out, nil
}

// ListActiveEmployees implements policy.Repository.
func (r *policyRepository) ListActiveEmployees(ctx context.Context, tenantID string) ([]policy.Employee, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, tenant_id, user_id, full_name, branch_id, shift_id, role, active
		FROM employees
		WHERE tenant_id = $1
		  AND active = true
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var out []policy.Employee
	for rows.Next() {
		var emp policy.Employee
		if err := rows.Scan(
			&emp.ID, &emp.TenantID, &emp.UserID, &emp.FullName,
			&emp.BranchID, &emp.ShiftID, &emp.Role, &emp.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read employees: %w", err)
	}

	return out, nil
}

func NewPolicyRepository(db *database.DB) policy.Repository {
	return &policyRepository{db: db}
}
