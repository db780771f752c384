package policy

import (
	"context"
)

// Repository reads the collaborator-owned reference data the engine
// consumes. All tenant-scoped reads take a tenantID parameter to prevent
// cross-tenant access.
type Repository interface {
	GetEmployee(ctx context.Context, employeeID string, tenantID string) (Employee, error)
	GetShift(ctx context.Context, shiftID string, tenantID string) (Shift, error)
	GetBranch(ctx context.Context, branchID string, tenantID string) (Branch, error)
	GetSettings(ctx context.Context, tenantID string) (Settings, error)

	// ListSettings returns every tenant's settings block. Used by the
	// freeze batch, which runs from the platform context.
	ListSettings(ctx context.Context) ([]Settings, error)

	// ListActiveEmployees feeds the day-rollover absence batch.
	ListActiveEmployees(ctx context.Context, tenantID string) ([]Employee, error)
}
