package qrtoken

import (
	"context"
	"time"
)

// Repository persists scan credentials.
type Repository interface {
	// Rotate deactivates any active token for the location and inserts
	// tok as the new active one. Both steps run in one transaction so no
	// window exists with two simultaneously valid tokens.
	Rotate(ctx context.Context, tok Token) (Token, error)

	// GetByToken looks a credential up by its opaque string. Read-only;
	// safe for unlimited concurrent scanners.
	GetByToken(ctx context.Context, token string) (Token, error)

	// DeactivateExpired flips the active flag off for tokens past their
	// expiry. Housekeeping only; validation is time-based regardless.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
