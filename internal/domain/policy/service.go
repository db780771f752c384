package policy

import (
	"context"
	"time"
)

// Resolver composes the policy View for an employee as of a point in
// time. Pure read; no mutation.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string, employeeID string, asOf time.Time) (View, error)
}
