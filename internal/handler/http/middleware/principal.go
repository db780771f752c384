package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
)

type principalKey struct{}

// Principal resolves the JWT claims into an explicit tenant.Principal and
// stores it on the request context. It is the only place where claims are
// read; everything below the handler layer receives the principal as a
// parameter.
func Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, "Missing or invalid token")
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			response.Unauthorized(w, "Missing or invalid token")
			return
		}
		roleStr, ok := claims["role"].(string)
		if !ok || tenant.Role(roleStr).Level() == 0 {
			response.Unauthorized(w, "Missing or invalid token")
			return
		}

		p := tenant.Principal{
			UserID:    userID,
			Role:      tenant.Role(roleStr),
			IP:        r.RemoteAddr,
			UserAgent: r.UserAgent(),
		}
		if employeeID, ok := claims["employee_id"].(string); ok && employeeID != "" {
			p.EmployeeID = &employeeID
		}
		if tenantID, ok := claims["tenant_id"].(string); ok && tenantID != "" {
			p.TenantID = &tenantID
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithPrincipal stores a principal on the context the same way the
// Principal middleware does. Handler tests use it to skip the JWT layer.
func WithPrincipal(ctx context.Context, p tenant.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the Principal
// middleware.
func PrincipalFromContext(ctx context.Context) (tenant.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(tenant.Principal)
	return p, ok
}
