package qrtoken

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
)

// Service issues, rotates, and validates short-lived scan credentials.
type Service interface {
	// Issue generates a fresh token for a location and atomically
	// supersedes the previous one. ttl <= 0 falls back to the tenant's
	// configured refresh interval.
	Issue(ctx context.Context, p tenant.Principal, locationID string, ttl time.Duration) (Token, error)

	// Validate resolves an opaque token string. Never mutates token
	// state; expiry is time-based, not consumption-based.
	Validate(ctx context.Context, token string) (Token, error)
}
