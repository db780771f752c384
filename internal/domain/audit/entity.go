package audit

import (
	"context"
	"time"
)

// Entry is one immutable row in the append-only audit log. Entries are
// created once per state-changing action and never updated or deleted.
type Entry struct {
	ID         string
	TenantID   *string
	ActorID    string
	ActorRole  string
	Action     string
	EntityType string
	EntityID   string
	Before     map[string]any
	After      map[string]any
	IP         string
	UserAgent  string
	CreatedAt  time.Time
}

// Repository persists audit entries. Record is synchronous: a mutating
// operation is not considered committed until its entry is durable.
type Repository interface {
	Record(ctx context.Context, entry Entry) error
}
