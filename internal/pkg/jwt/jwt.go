package jwt

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
)

type Service interface {
	// GenerateAccessToken encodes a principal's identity claims.
	GenerateAccessToken(p tenant.Principal, email string) (token string, expiresAt int64, err error)

	// GenerateSSEToken mints a short-lived token for an event-stream
	// connection. SSE tokens carry the tenant topic the holder may read.
	GenerateSSEToken(p tenant.Principal) (token string, expiresIn int, err error)

	// ValidateSSEToken returns the tenant topic and user behind an SSE
	// token.
	ValidateSSEToken(tokenString string) (tenantID string, userID string, err error)

	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	secretKey            string
	accessExpirationTime string
	tokenAuth            *jwtauth.JWTAuth
}

func NewJWTService(secretKey string, accessExpirationTime string) Service {
	return &JWTService{
		secretKey:            secretKey,
		accessExpirationTime: accessExpirationTime,
		tokenAuth:            jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) GenerateAccessToken(p tenant.Principal, email string) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := map[string]interface{}{
		"user_id":     p.UserID,
		"email":       email,
		"employee_id": returnValueOrNil(p.EmployeeID),
		"tenant_id":   returnValueOrNil(p.TenantID),
		"role":        string(p.Role),
		"type":        "access",
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(p tenant.Principal) (token string, expiresIn int, err error) {
	// SSE tokens are short-lived (5 minutes)
	expiresIn = 300
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":   p.UserID,
		"tenant_id": returnValueOrNil(p.TenantID),
		"type":      "sse",
		"exp":       expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns its tenant topic
// and user ID
func (j *JWTService) ValidateSSEToken(tokenString string) (tenantID string, userID string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return "", "", jwt.ErrInvalidJWT()
	}

	userIDVal, ok := token.Get("user_id")
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}
	userID, ok = userIDVal.(string)
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}

	if tenantVal, ok := token.Get("tenant_id"); ok {
		tenantID, _ = tenantVal.(string)
	}

	return tenantID, userID, nil
}

func returnValueOrNil(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
