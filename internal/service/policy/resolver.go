package policy

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/policy"
)

type ResolverImpl struct {
	repo policy.Repository

	// Tenant settings are read-mostly; concurrent resolutions of the same
	// tenant share one repository read.
	settingsGroup singleflight.Group
}

func NewResolver(repo policy.Repository) *ResolverImpl {
	return &ResolverImpl{repo: repo}
}

// Resolve implements policy.Resolver.
func (r *ResolverImpl) Resolve(ctx context.Context, tenantID string, employeeID string, asOf time.Time) (policy.View, error) {
	emp, err := r.repo.GetEmployee(ctx, employeeID, tenantID)
	if err != nil {
		return policy.View{}, err
	}
	if !emp.Active {
		return policy.View{}, policy.ErrEmployeeInactive
	}

	if emp.ShiftID == nil {
		return policy.View{}, policy.ErrNoShiftAssigned
	}
	shift, err := r.repo.GetShift(ctx, *emp.ShiftID, tenantID)
	if err != nil {
		return policy.View{}, err
	}
	if !shift.Active {
		return policy.View{}, policy.ErrNoShiftAssigned
	}

	settings, err := r.settings(ctx, tenantID)
	if err != nil {
		return policy.View{}, err
	}

	view := policy.View{
		TenantID:     tenantID,
		EmployeeID:   emp.ID,
		EmployeeRole: emp.Role,

		ShiftStart:   combine(asOf, shift.StartTime),
		ShiftEnd:     combine(asOf, shift.EndTime),
		GraceMinutes: shift.GraceMinutes,

		RequireGeoValidation: settings.RequireGeoValidation,
		EffectiveRadiusM:     float64(settings.GeoFenceRadiusM),

		AllowMockLocation:        settings.AllowMockLocation,
		RequireApproval:          settings.RequireApproval,
		RegularizationWindowDays: settings.RegularizationWindowDays,
		FreezeDay:                settings.FreezeDay,
		QRTokenTTL:               time.Duration(settings.QRRefreshIntervalMin) * time.Minute,
	}

	if emp.BranchID != nil {
		branch, err := r.repo.GetBranch(ctx, *emp.BranchID, tenantID)
		if err != nil {
			return policy.View{}, err
		}
		view.BranchLatitude = branch.Latitude
		view.BranchLongitude = branch.Longitude
		// Branch radius overrides the tenant default; radius only.
		if branch.RadiusM != nil {
			view.EffectiveRadiusM = float64(*branch.RadiusM)
		}
	}

	if view.RequireGeoValidation && !view.HasBranchLocation() {
		return policy.View{}, policy.ErrNoLocationConfigured
	}

	return view, nil
}

func (r *ResolverImpl) settings(ctx context.Context, tenantID string) (policy.Settings, error) {
	v, err, _ := r.settingsGroup.Do(tenantID, func() (interface{}, error) {
		return r.repo.GetSettings(ctx, tenantID)
	})
	if err != nil {
		return policy.Settings{}, fmt.Errorf("failed to load tenant settings: %w", err)
	}
	return v.(policy.Settings), nil
}

// combine places a shift's time-of-day on the asOf date.
func combine(date time.Time, timeOfDay time.Time) time.Time {
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		timeOfDay.Hour(), timeOfDay.Minute(), 0, 0,
		date.Location(),
	)
}
