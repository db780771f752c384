package attendance

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
)

// Service is the check-in/check-out decision core.
type Service interface {
	// CheckIn validates an inbound event and produces exactly one record.
	CheckIn(ctx context.Context, p tenant.Principal, req CheckInRequest) (Record, error)

	// CheckOut closes today's open record and computes working hours.
	CheckOut(ctx context.Context, p tenant.Principal) (Record, error)

	// Approve resolves a pending_approval record using the status computed
	// at check-in time.
	Approve(ctx context.Context, p tenant.Principal, attendanceID string) (Record, error)

	// Reject discards a pending_approval record. The discard is audited
	// before deletion and is irreversible.
	Reject(ctx context.Context, p tenant.Principal, attendanceID string, remarks string) error

	// History returns the principal's recent records.
	History(ctx context.Context, p tenant.Principal, limit int) ([]Record, error)

	// MonthSummary returns the principal's current-month aggregate.
	MonthSummary(ctx context.Context, p tenant.Principal) (Summary, error)

	// MarkAbsentees creates absent records for employees who had an active
	// shift on the previous day and no record. Batch entry point.
	MarkAbsentees(ctx context.Context, asOf time.Time) (int, error)
}

// RegularizationService amends finalized attendance within the tenant's
// time wall.
type RegularizationService interface {
	Request(ctx context.Context, p tenant.Principal, attendanceID string, req RegularizationRequest) (Record, error)
	Approve(ctx context.Context, p tenant.Principal, attendanceID string) (Record, error)
	Reject(ctx context.Context, p tenant.Principal, attendanceID string, remarks string) (Record, error)

	// FreezeDueTenants freezes the current month for every tenant whose
	// freeze day is today. One tenant's failure never blocks another's.
	FreezeDueTenants(ctx context.Context, asOf time.Time) error
}
