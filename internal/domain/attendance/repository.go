package attendance

import (
	"context"
	"time"
)

// Repository defines data access for attendance records. All methods
// include tenantID to prevent cross-tenant data access; Create must be a
// single atomic compare-and-create on (tenant, employee, date).
type Repository interface {
	// Create inserts a new record. Returns ErrDuplicateCheckIn when a
	// record already exists for (tenant, employee, date); the check and
	// the insert are one atomic statement, never check-then-insert.
	Create(ctx context.Context, rec Record) (Record, error)

	// GetByID retrieves a record with tenant isolation.
	GetByID(ctx context.Context, id string, tenantID string) (Record, error)

	// GetByEmployeeAndDate is used by check-out and the absence batch.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time, tenantID string) (Record, error)

	// Update persists a mutated record. Frozen rows are excluded by
	// predicate so a concurrent freeze wins over a late write.
	Update(ctx context.Context, rec Record) error

	// Delete removes a record. Only the pending_approval rejection path
	// calls this, and only after its audit entry is durable.
	Delete(ctx context.Context, id string, tenantID string) error

	// ListByEmployee returns recent records, newest first.
	ListByEmployee(ctx context.Context, employeeID string, tenantID string, limit int) ([]Record, error)

	// MonthSummary aggregates one employee's month.
	MonthSummary(ctx context.Context, employeeID string, tenantID string, year int, month time.Month) (Summary, error)

	// FreezeMonth marks every not-yet-frozen record of the tenant in the
	// given month as frozen and returns how many rows changed. Idempotent.
	FreezeMonth(ctx context.Context, tenantID string, year int, month time.Month) (int64, error)

	// BulkCreateAbsences inserts day-rollover absence records, skipping
	// employee-dates that already have a record. Returns how many rows
	// were actually inserted.
	BulkCreateAbsences(ctx context.Context, recs []Record) (int, error)
}
