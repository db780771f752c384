package tenant

// Role is the authorization level of a principal. Levels ascend from
// employee to platform admin; platform admins operate outside any tenant.
type Role string

const (
	RoleEmployee      Role = "EMPLOYEE"
	RoleManager       Role = "MANAGER"
	RoleHRAdmin       Role = "HR_ADMIN"
	RoleOrgAdmin      Role = "ORG_ADMIN"
	RolePlatformAdmin Role = "PLATFORM_ADMIN"
)

var roleLevels = map[Role]int{
	RoleEmployee:      1,
	RoleManager:       2,
	RoleHRAdmin:       3,
	RoleOrgAdmin:      4,
	RolePlatformAdmin: 5,
}

// Level returns the numeric rank of the role; unknown roles rank 0.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether r grants the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return r.Level() >= min.Level()
}

// Principal identifies the actor behind a request. TenantID is nil for
// platform operators working from the shared administrative context.
// Principals are threaded explicitly through every service call; nothing
// reads tenant identity from ambient request state.
type Principal struct {
	UserID     string
	EmployeeID *string
	TenantID   *string
	Role       Role

	// Origin metadata, carried into audit entries.
	IP        string
	UserAgent string
}

// Platform reports whether the principal operates outside any tenant.
func (p Principal) Platform() bool {
	return p.TenantID == nil || *p.TenantID == ""
}

// Tenant returns the bound tenant ID, or "" for platform principals.
func (p Principal) Tenant() string {
	if p.TenantID == nil {
		return ""
	}
	return *p.TenantID
}

// Employee returns the bound employee ID, or "" when the principal has no
// employee profile.
func (p Principal) Employee() string {
	if p.EmployeeID == nil {
		return ""
	}
	return *p.EmployeeID
}

// Operation declares the authorization requirements of an entry point.
type Operation struct {
	Name         string
	MinRole      Role
	PlatformOnly bool
	Mutating     bool
}
