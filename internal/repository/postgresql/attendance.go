package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
)

type attendanceRepository struct {
	db *database.DB
}

const attendanceColumns = `
	id, tenant_id, employee_id, date,
	check_in_time, check_out_time, method, status, pending_status,
	late_minutes, working_hours,
	check_in_latitude, check_in_longitude,
	regularization, regularization_reason, regularization_remarks, is_regularized,
	approved_by, approved_at, frozen,
	created_at, updated_at
`

func scanRecord(row pgx.Row) (attendance.Record, error) {
	var rec attendance.Record
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.EmployeeID, &rec.Date,
		&rec.CheckInTime, &rec.CheckOutTime, &rec.Method, &rec.Status, &rec.PendingStatus,
		&rec.LateMinutes, &rec.WorkingHours,
		&rec.CheckInLatitude, &rec.CheckInLongitude,
		&rec.Regularization, &rec.RegularizationReason, &rec.RegularizationRemarks, &rec.IsRegularized,
		&rec.ApprovedBy, &rec.ApprovedAt, &rec.Frozen,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

// Create implements attendance.Repository. The partial unique index on
// (tenant_id, employee_id, date) turns a concurrent double check-in into
// a conflict; DO NOTHING plus a missing RETURNING row surfaces it.
func (a *attendanceRepository) Create(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendance_records (
			id, tenant_id, employee_id, date,
			check_in_time, method, status, pending_status,
			late_minutes, check_in_latitude, check_in_longitude,
			regularization, frozen, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false, $13, $14
		)
		ON CONFLICT (tenant_id, employee_id, date) DO NOTHING
		RETURNING ` + attendanceColumns

	created, err := scanRecord(q.QueryRow(ctx, query,
		rec.ID,
		rec.TenantID,
		rec.EmployeeID,
		rec.Date,
		rec.CheckInTime,
		rec.Method,
		rec.Status,
		rec.PendingStatus,
		rec.LateMinutes,
		rec.CheckInLatitude,
		rec.CheckInLongitude,
		rec.Regularization,
		rec.CreatedAt,
		rec.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrDuplicateCheckIn
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return created, nil
}

// GetByID implements attendance.Repository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string, tenantID string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE id = $1
		  AND tenant_id = $2
	`

	rec, err := scanRecord(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return rec, nil
}

// GetByEmployeeAndDate implements attendance.Repository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time, tenantID string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE employee_id = $1
		  AND date = $2
		  AND tenant_id = $3
	`

	rec, err := scanRecord(q.QueryRow(ctx, query, employeeID, date, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return rec, nil
}

// Update implements attendance.Repository. The frozen predicate makes a
// concurrent freeze win over a late write.
func (a *attendanceRepository) Update(ctx context.Context, rec attendance.Record) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records
		SET check_out_time = $1,
			status = $2,
			pending_status = $3,
			working_hours = $4,
			regularization = $5,
			regularization_reason = $6,
			regularization_remarks = $7,
			is_regularized = $8,
			approved_by = $9,
			approved_at = $10,
			updated_at = $11
		WHERE id = $12
		  AND tenant_id = $13
		  AND frozen = false
	`

	tag, err := q.Exec(ctx, query,
		rec.CheckOutTime,
		rec.Status,
		rec.PendingStatus,
		rec.WorkingHours,
		rec.Regularization,
		rec.RegularizationReason,
		rec.RegularizationRemarks,
		rec.IsRegularized,
		rec.ApprovedBy,
		rec.ApprovedAt,
		rec.UpdatedAt,
		rec.ID,
		rec.TenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrFrozenRecord
	}

	return nil
}

// Delete implements attendance.Repository.
func (a *attendanceRepository) Delete(ctx context.Context, id string, tenantID string) error {
	q := GetQuerier(ctx, a.db)

	tag, err := q.Exec(ctx, `
		DELETE FROM attendance_records
		WHERE id = $1
		  AND tenant_id = $2
	`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// ListByEmployee implements attendance.Repository.
func (a *attendanceRepository) ListByEmployee(ctx context.Context, employeeID string, tenantID string, limit int) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE employee_id = $1
		  AND tenant_id = $2
		ORDER BY date DESC
		LIMIT $3
	`

	rows, err := q.Query(ctx, query, employeeID, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var recs []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attendance records: %w", err)
	}

	return recs, nil
}

// MonthSummary implements attendance.Repository.
func (a *attendanceRepository) MonthSummary(ctx context.Context, employeeID string, tenantID string, year int, month time.Month) (attendance.Summary, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'present'),
			COUNT(*) FILTER (WHERE status = 'late'),
			COUNT(*) FILTER (WHERE status = 'absent'),
			COUNT(*) FILTER (WHERE status = 'half_day'),
			COUNT(*) FILTER (WHERE status = 'on_leave')
		FROM attendance_records
		WHERE employee_id = $1
		  AND tenant_id = $2
		  AND date >= $3
		  AND date < $4
	`

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	sum := attendance.Summary{EmployeeID: employeeID, Year: year, Month: month}
	err := q.QueryRow(ctx, query, employeeID, tenantID, monthStart, monthStart.AddDate(0, 1, 0)).Scan(
		&sum.TotalPresent, &sum.TotalLate, &sum.TotalAbsent, &sum.TotalHalfDay, &sum.TotalOnLeave,
	)
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to summarize attendance: %w", err)
	}

	return sum, nil
}

// FreezeMonth implements attendance.Repository.
func (a *attendanceRepository) FreezeMonth(ctx context.Context, tenantID string, year int, month time.Month) (int64, error) {
	q := GetQuerier(ctx, a.db)

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	tag, err := q.Exec(ctx, `
		UPDATE attendance_records
		SET frozen = true,
			updated_at = now()
		WHERE tenant_id = $1
		  AND date >= $2
		  AND date < $3
		  AND frozen = false
	`, tenantID, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return 0, fmt.Errorf("failed to freeze attendance month: %w", err)
	}

	return tag.RowsAffected(), nil
}

// BulkCreateAbsences implements attendance.Repository. Conflicting
// employee-dates are skipped so the sweep never overwrites a real
// check-in that raced it.
func (a *attendanceRepository) BulkCreateAbsences(ctx context.Context, recs []attendance.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	q := GetQuerier(ctx, a.db)

	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(`
			INSERT INTO attendance_records (
				id, tenant_id, employee_id, date,
				method, status, late_minutes, regularization, frozen,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, 0, $7, false, $8, $9)
			ON CONFLICT (tenant_id, employee_id, date) DO NOTHING
		`, rec.ID, rec.TenantID, rec.EmployeeID, rec.Date,
			rec.Method, rec.Status, rec.Regularization, rec.CreatedAt, rec.UpdatedAt)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range recs {
		ct, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert absence record: %w", err)
		}
		inserted += int(ct.RowsAffected())
	}

	return inserted, nil
}

func NewAttendanceRepository(db *database.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}
