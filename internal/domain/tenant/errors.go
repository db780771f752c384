package tenant

import "errors"

// Tenant isolation errors
var (
	ErrIsolationViolation    = errors.New("operation crosses the tenant isolation boundary")
	ErrRoleInsufficient      = errors.New("your role does not permit this operation")
	ErrPlatformScopeRequired = errors.New("operation requires the platform administrative context")
	ErrNoEmployeeProfile     = errors.New("no employee profile is linked to this account")
)
