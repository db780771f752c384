package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/qrtoken"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
)

type qrTokenRepository struct {
	db *database.DB
}

// Rotate implements qrtoken.Repository. Deactivating the old token and
// inserting the new one share one transaction so there is never a window
// with two valid tokens for a location.
func (r *qrTokenRepository) Rotate(ctx context.Context, tok qrtoken.Token) (qrtoken.Token, error) {
	err := WithTransaction(ctx, r.db, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, `
			UPDATE qr_tokens
			SET active = false
			WHERE location_id = $1
			  AND tenant_id = $2
			  AND active = true
		`, tok.LocationID, tok.TenantID); err != nil {
			return fmt.Errorf("failed to deactivate previous token: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
			INSERT INTO qr_tokens (
				id, tenant_id, location_id, token, issued_by, active, created_at, expires_at
			) VALUES ($1, $2, $3, $4, $5, true, $6, $7)
		`, tok.ID, tok.TenantID, tok.LocationID, tok.Token, tok.IssuedBy, tok.CreatedAt, tok.ExpiresAt); err != nil {
			return fmt.Errorf("failed to insert token: %w", err)
		}

		return nil
	})
	if err != nil {
		return qrtoken.Token{}, err
	}

	return tok, nil
}

// GetByToken implements qrtoken.Repository.
func (r *qrTokenRepository) GetByToken(ctx context.Context, token string) (qrtoken.Token, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, location_id, token, issued_by, active, created_at, expires_at
		FROM qr_tokens
		WHERE token = $1
	`

	var tok qrtoken.Token
	err := q.QueryRow(ctx, query, token).Scan(
		&tok.ID, &tok.TenantID, &tok.LocationID, &tok.Token,
		&tok.IssuedBy, &tok.Active, &tok.CreatedAt, &tok.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return qrtoken.Token{}, qrtoken.ErrTokenNotFound
		}
		return qrtoken.Token{}, fmt.Errorf("failed to get qr token: %w", err)
	}

	return tok, nil
}

// DeactivateExpired implements qrtoken.Repository.
func (r *qrTokenRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE qr_tokens
		SET active = false
		WHERE active = true
		  AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired qr tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

func NewQRTokenRepository(db *database.DB) qrtoken.Repository {
	return &qrTokenRepository{db: db}
}
