package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
)

type auditRepository struct {
	db *database.DB
}

// Record implements audit.Repository. The table is append-only; nothing
// in the codebase updates or deletes rows.
func (r *auditRepository) Record(ctx context.Context, entry audit.Entry) error {
	q := GetQuerier(ctx, r.db)

	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return fmt.Errorf("failed to encode before snapshot: %w", err)
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return fmt.Errorf("failed to encode after snapshot: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO audit_entries (
			id, tenant_id, actor_id, actor_role, action,
			entity_type, entity_id, before, after,
			ip, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		entry.ID, entry.TenantID, entry.ActorID, entry.ActorRole, entry.Action,
		entry.EntityType, entry.EntityID, before, after,
		entry.IP, entry.UserAgent, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

func marshalSnapshot(snap map[string]any) ([]byte, error) {
	if snap == nil {
		return nil, nil
	}
	return json.Marshal(snap)
}

func NewAuditRepository(db *database.DB) audit.Repository {
	return &auditRepository{db: db}
}
