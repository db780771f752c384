package policy

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
)

// Settings is the per-tenant configuration block consumed by the engine.
// It is read-mostly; a resolved View snapshots the values once per
// operation so concurrent updates never bleed into a running request.
type Settings struct {
	TenantID                 string
	GeoFenceRadiusM          int
	RequireGeoValidation     bool
	AllowMockLocation        bool
	RequireApproval          bool
	RegularizationWindowDays int
	FreezeDay                int
	QRRefreshIntervalMin     int
}

// Shift is a working-time window. StartTime and EndTime carry only a
// time-of-day; the date component is ignored.
type Shift struct {
	ID           string
	TenantID     string
	Name         string
	StartTime    time.Time
	EndTime      time.Time
	GraceMinutes int
	Active       bool
}

type Branch struct {
	ID        string
	TenantID  string
	Name      string
	Latitude  *float64
	Longitude *float64
	RadiusM   *int
}

type Employee struct {
	ID       string
	TenantID string
	UserID   string
	FullName string
	BranchID *string
	ShiftID  *string
	Role     tenant.Role
	Active   bool
}

// View is the policy snapshot applied to a single employee operation:
// shift window on the asOf date, effective geofence, and tenant toggles.
// Branch radius overrides the tenant default; every other setting is
// tenant-level.
type View struct {
	TenantID     string
	EmployeeID   string
	EmployeeRole tenant.Role

	ShiftStart   time.Time
	ShiftEnd     time.Time
	GraceMinutes int

	RequireGeoValidation bool
	EffectiveRadiusM     float64
	BranchLatitude       *float64
	BranchLongitude      *float64

	AllowMockLocation        bool
	RequireApproval          bool
	RegularizationWindowDays int
	FreezeDay                int
	QRTokenTTL               time.Duration
}

// HasBranchLocation reports whether the resolved branch carries usable
// coordinates for geofence checks.
func (v View) HasBranchLocation() bool {
	return v.BranchLatitude != nil && v.BranchLongitude != nil
}
