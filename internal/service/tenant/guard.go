package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
)

// Guard enforces tenant isolation and role requirements for every entry
// point. An isolation violation is always audited exactly once before the
// error returns; it is never silently downgraded.
type Guard struct {
	auditRepo audit.Repository
	now       func() time.Time
}

func NewGuard(auditRepo audit.Repository) *Guard {
	return &Guard{
		auditRepo: auditRepo,
		now:       time.Now,
	}
}

// Authorize checks p against the requested tenant and the operation's
// declared requirements. requestedTenant is "" only for platform-scoped
// operations.
func (g *Guard) Authorize(ctx context.Context, p tenant.Principal, requestedTenant string, op tenant.Operation) error {
	if op.PlatformOnly {
		if p.Role != tenant.RolePlatformAdmin || !p.Platform() {
			return fmt.Errorf("%w: %s", tenant.ErrPlatformScopeRequired, op.Name)
		}
		return nil
	}

	if !p.Platform() && p.Tenant() != requestedTenant {
		g.recordViolation(ctx, p, requestedTenant, op, "principal is bound to another tenant")
		return fmt.Errorf("%w: principal is bound to another tenant", tenant.ErrIsolationViolation)
	}

	if p.Platform() && op.Mutating {
		g.recordViolation(ctx, p, requestedTenant, op, "platform principal attempted a tenant-scoped write")
		return fmt.Errorf("%w: platform principals may not mutate tenant data", tenant.ErrIsolationViolation)
	}

	if !p.Role.AtLeast(op.MinRole) {
		return fmt.Errorf("%w: %s requires at least %s", tenant.ErrRoleInsufficient, op.Name, op.MinRole)
	}

	return nil
}

func (g *Guard) recordViolation(ctx context.Context, p tenant.Principal, requestedTenant string, op tenant.Operation, detail string) {
	entry := audit.Entry{
		ID:         uuid.New().String(),
		TenantID:   p.TenantID,
		ActorID:    p.UserID,
		ActorRole:  string(p.Role),
		Action:     "tenant.isolation_violation",
		EntityType: "tenant",
		EntityID:   requestedTenant,
		After: map[string]any{
			"operation": op.Name,
			"detail":    detail,
		},
		IP:        p.IP,
		UserAgent: p.UserAgent,
		CreatedAt: g.now().UTC(),
	}

	if err := g.auditRepo.Record(ctx, entry); err != nil {
		// The violation error still surfaces; losing the audit row is
		// worth an alert, not a swallowed rejection.
		slog.Error("failed to audit isolation violation",
			"actor", p.UserID, "requested_tenant", requestedTenant, "error", err)
	}
}
