package qrtoken

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/policy"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/qrtoken"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	tenantService "github.com/cmlabs-hris/attendance-engine-go/internal/service/tenant"
)

var opIssueToken = tenant.Operation{
	Name:     "qrtoken.issue",
	MinRole:  tenant.RoleHRAdmin,
	Mutating: true,
}

type QRTokenServiceImpl struct {
	tx         database.Transactor
	tokenRepo  qrtoken.Repository
	policyRepo policy.Repository
	guard      *tenantService.Guard
	auditRepo  audit.Repository
	now        func() time.Time
}

func NewQRTokenService(
	tx database.Transactor,
	tokenRepo qrtoken.Repository,
	policyRepo policy.Repository,
	guard *tenantService.Guard,
	auditRepo audit.Repository,
) qrtoken.Service {
	return &QRTokenServiceImpl{
		tx:         tx,
		tokenRepo:  tokenRepo,
		policyRepo: policyRepo,
		guard:      guard,
		auditRepo:  auditRepo,
		now:        time.Now,
	}
}

// generateToken returns an opaque 256-bit credential string.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Issue implements qrtoken.Service.
func (s *QRTokenServiceImpl) Issue(ctx context.Context, p tenant.Principal, locationID string, ttl time.Duration) (qrtoken.Token, error) {
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opIssueToken); err != nil {
		return qrtoken.Token{}, err
	}

	// The branch lookup both validates the location and pins it to the
	// issuer's tenant.
	branch, err := s.policyRepo.GetBranch(ctx, locationID, p.Tenant())
	if err != nil {
		return qrtoken.Token{}, fmt.Errorf("failed to resolve location: %w", err)
	}

	if ttl <= 0 {
		settings, err := s.policyRepo.GetSettings(ctx, p.Tenant())
		if err != nil {
			return qrtoken.Token{}, fmt.Errorf("failed to load tenant settings: %w", err)
		}
		ttl = time.Duration(settings.QRRefreshIntervalMin) * time.Minute
	}

	opaque, err := generateToken()
	if err != nil {
		return qrtoken.Token{}, err
	}

	now := s.now().UTC()
	tok := qrtoken.Token{
		ID:         uuid.New().String(),
		TenantID:   p.Tenant(),
		LocationID: branch.ID,
		Token:      opaque,
		IssuedBy:   p.UserID,
		Active:     true,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	// Rotation joins this transaction, so the deactivate-insert pair and
	// the audit entry become durable together.
	var created qrtoken.Token
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err = s.tokenRepo.Rotate(ctx, tok)
		if err != nil {
			return fmt.Errorf("failed to rotate qr token: %w", err)
		}

		if err := s.auditRepo.Record(ctx, audit.Entry{
			ID:         uuid.New().String(),
			TenantID:   p.TenantID,
			ActorID:    p.UserID,
			ActorRole:  string(p.Role),
			Action:     "qrtoken.issued",
			EntityType: "qr_token",
			EntityID:   created.ID,
			After: map[string]any{
				"location_id": created.LocationID,
				"expires_at":  created.ExpiresAt,
			},
			IP:        p.IP,
			UserAgent: p.UserAgent,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to audit qr token issue: %w", err)
		}
		return nil
	})
	if err != nil {
		return qrtoken.Token{}, err
	}

	return created, nil
}

// Validate implements qrtoken.Service.
func (s *QRTokenServiceImpl) Validate(ctx context.Context, token string) (qrtoken.Token, error) {
	tok, err := s.tokenRepo.GetByToken(ctx, token)
	if err != nil {
		return qrtoken.Token{}, err
	}

	if !tok.Valid(s.now().UTC()) {
		if !tok.Active {
			return qrtoken.Token{}, qrtoken.ErrTokenInactive
		}
		return qrtoken.Token{}, qrtoken.ErrTokenExpired
	}

	return tok, nil
}
