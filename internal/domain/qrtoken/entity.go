package qrtoken

import "time"

// Token is one rotating scan credential scoped to (tenant, location).
// At most one token per location is active at any instant; rotation
// deactivates the prior token in the same transaction that activates the
// new one. Expired tokens are retained for audit.
type Token struct {
	ID         string
	TenantID   string
	LocationID string
	Token      string
	IssuedBy   string
	Active     bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Valid reports whether the token may still be scanned at now.
func (t Token) Valid(now time.Time) bool {
	return t.Active && now.Before(t.ExpiresAt)
}
