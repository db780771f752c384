package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/policy"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/qrtoken"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/geo"
	tenantService "github.com/cmlabs-hris/attendance-engine-go/internal/service/tenant"
)

const (
	// gpsToleranceM absorbs GPS drift on top of the configured radius.
	gpsToleranceM = 5.0

	// maxLateMinutes separates a late day from a half day.
	maxLateMinutes = 120

	defaultHistoryLimit = 30
)

var (
	opCheckIn  = tenant.Operation{Name: "attendance.check_in", MinRole: tenant.RoleEmployee, Mutating: true}
	opCheckOut = tenant.Operation{Name: "attendance.check_out", MinRole: tenant.RoleEmployee, Mutating: true}
	opApprove  = tenant.Operation{Name: "attendance.approve", MinRole: tenant.RoleManager, Mutating: true}
	opReject   = tenant.Operation{Name: "attendance.reject", MinRole: tenant.RoleManager, Mutating: true}
	opHistory  = tenant.Operation{Name: "attendance.history", MinRole: tenant.RoleEmployee}
	opSummary  = tenant.Operation{Name: "attendance.summary", MinRole: tenant.RoleEmployee}
)

type AttendanceServiceImpl struct {
	tx             database.Transactor
	attendanceRepo attendance.Repository
	policyRepo     policy.Repository
	resolver       policy.Resolver
	tokens         qrtoken.Service
	guard          *tenantService.Guard
	auditRepo      audit.Repository
	publisher      notification.Publisher
	now            func() time.Time
}

func NewAttendanceService(
	tx database.Transactor,
	attendanceRepo attendance.Repository,
	policyRepo policy.Repository,
	resolver policy.Resolver,
	tokens qrtoken.Service,
	guard *tenantService.Guard,
	auditRepo audit.Repository,
	publisher notification.Publisher,
) attendance.Service {
	return &AttendanceServiceImpl{
		tx:             tx,
		attendanceRepo: attendanceRepo,
		policyRepo:     policyRepo,
		resolver:       resolver,
		tokens:         tokens,
		guard:          guard,
		auditRepo:      auditRepo,
		publisher:      publisher,
		now:            time.Now,
	}
}

// computeStatus selects the lateness-based status. First match wins.
func computeStatus(lateMinutes, graceMinutes int) attendance.Status {
	switch {
	case lateMinutes <= graceMinutes:
		return attendance.StatusPresent
	case lateMinutes <= maxLateMinutes:
		return attendance.StatusLate
	default:
		return attendance.StatusHalfDay
	}
}

func lateMinutes(shiftStart, eventTime time.Time) int {
	m := int(eventTime.Sub(shiftStart).Minutes())
	if m < 0 {
		return 0
	}
	return m
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// CheckIn implements attendance.Service.
func (s *AttendanceServiceImpl) CheckIn(ctx context.Context, p tenant.Principal, req attendance.CheckInRequest) (attendance.Record, error) {
	if err := req.Validate(); err != nil {
		return attendance.Record{}, err
	}
	if p.Employee() == "" {
		return attendance.Record{}, tenant.ErrNoEmployeeProfile
	}
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opCheckIn); err != nil {
		return attendance.Record{}, err
	}

	if req.Method == attendance.MethodQR {
		tok, err := s.tokens.Validate(ctx, req.QRToken)
		if err != nil {
			return attendance.Record{}, err
		}
		// A token issued by another tenant is a boundary crossing, not a
		// bad credential.
		if tok.TenantID != p.Tenant() {
			if err := s.guard.Authorize(ctx, p, tok.TenantID, opCheckIn); err != nil {
				return attendance.Record{}, err
			}
		}
	}

	now := s.now().UTC()

	// A sequential duplicate gets the benign answer before any location
	// screening. The insert's ON CONFLICT remains the guard under races.
	if _, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, p.Employee(), dateOf(now), p.Tenant()); err == nil {
		return attendance.Record{}, attendance.ErrDuplicateCheckIn
	} else if !errors.Is(err, attendance.ErrAttendanceNotFound) {
		return attendance.Record{}, err
	}

	view, err := s.resolver.Resolve(ctx, p.Tenant(), p.Employee(), now)
	if err != nil {
		return attendance.Record{}, err
	}

	// Mock-location screening runs before any distance math.
	if req.MockLocation && !view.AllowMockLocation {
		return attendance.Record{}, attendance.ErrSecurityRejected
	}

	if view.RequireGeoValidation {
		if req.Latitude == nil || req.Longitude == nil {
			return attendance.Record{}, fmt.Errorf("%w: no location was sent with the request", attendance.ErrOutOfRange)
		}
		within, distance := geo.WithinFencePtr(
			req.Latitude, req.Longitude,
			view.BranchLatitude, view.BranchLongitude,
			view.EffectiveRadiusM+gpsToleranceM,
		)
		if !within {
			return attendance.Record{}, fmt.Errorf("%w: %.0f m from your branch", attendance.ErrOutOfRange, distance)
		}
	}

	late := lateMinutes(view.ShiftStart, now)
	computed := computeStatus(late, view.GraceMinutes)

	status := computed
	var pendingStatus *attendance.Status
	if view.RequireApproval && req.Method == attendance.MethodQR && !view.EmployeeRole.AtLeast(tenant.RoleManager) {
		status = attendance.StatusPendingApproval
		pendingStatus = &computed
	}

	rec := attendance.Record{
		ID:               uuid.New().String(),
		TenantID:         p.Tenant(),
		EmployeeID:       p.Employee(),
		Date:             dateOf(now),
		CheckInTime:      &now,
		Method:           req.Method,
		Status:           status,
		PendingStatus:    pendingStatus,
		LateMinutes:      late,
		CheckInLatitude:  req.Latitude,
		CheckInLongitude: req.Longitude,
		Regularization:   attendance.RegNone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var created attendance.Record
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err = s.attendanceRepo.Create(ctx, rec)
		if err != nil {
			return err
		}
		return s.audit(ctx, p, "attendance.check_in", created.ID, nil, snapshot(created))
	})
	if err != nil {
		return attendance.Record{}, err
	}
	s.publish(created)

	return created, nil
}

// CheckOut implements attendance.Service.
func (s *AttendanceServiceImpl) CheckOut(ctx context.Context, p tenant.Principal) (attendance.Record, error) {
	if p.Employee() == "" {
		return attendance.Record{}, tenant.ErrNoEmployeeProfile
	}
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opCheckOut); err != nil {
		return attendance.Record{}, err
	}

	now := s.now().UTC()
	rec, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, p.Employee(), dateOf(now), p.Tenant())
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.Record{}, attendance.ErrNotCheckedIn
		}
		return attendance.Record{}, err
	}

	if rec.Frozen {
		return attendance.Record{}, attendance.ErrFrozenRecord
	}
	// Leave and WFH days are owned by other systems; the clock never
	// touches them.
	if rec.Status.Finalized() {
		return attendance.Record{}, attendance.ErrStatusFinalized
	}
	if rec.CheckInTime == nil {
		return attendance.Record{}, attendance.ErrNotCheckedIn
	}
	if rec.CheckOutTime != nil {
		return attendance.Record{}, attendance.ErrAlreadyCheckedOut
	}

	before := snapshot(rec)
	hours := round2(now.Sub(*rec.CheckInTime).Hours())
	rec.CheckOutTime = &now
	rec.WorkingHours = &hours
	rec.UpdatedAt = now

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.attendanceRepo.Update(ctx, rec); err != nil {
			return err
		}
		return s.audit(ctx, p, "attendance.check_out", rec.ID, before, snapshot(rec))
	})
	if err != nil {
		return attendance.Record{}, err
	}
	s.publish(rec)

	return rec, nil
}

// Approve implements attendance.Service. The resolved status comes from
// the check-in moment, so a slow approver never turns a present day late.
func (s *AttendanceServiceImpl) Approve(ctx context.Context, p tenant.Principal, attendanceID string) (attendance.Record, error) {
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opApprove); err != nil {
		return attendance.Record{}, err
	}

	rec, err := s.attendanceRepo.GetByID(ctx, attendanceID, p.Tenant())
	if err != nil {
		return attendance.Record{}, err
	}
	if rec.Status != attendance.StatusPendingApproval {
		return attendance.Record{}, attendance.ErrNotPendingApproval
	}
	if rec.Frozen {
		return attendance.Record{}, attendance.ErrFrozenRecord
	}

	resolved, err := s.resolvePendingStatus(ctx, rec)
	if err != nil {
		return attendance.Record{}, err
	}

	now := s.now().UTC()
	before := snapshot(rec)
	rec.Status = resolved
	rec.PendingStatus = nil
	rec.ApprovedBy = &p.UserID
	rec.ApprovedAt = &now
	rec.UpdatedAt = now

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.attendanceRepo.Update(ctx, rec); err != nil {
			return err
		}
		return s.audit(ctx, p, "attendance.approved", rec.ID, before, snapshot(rec))
	})
	if err != nil {
		return attendance.Record{}, err
	}
	s.publish(rec)

	return rec, nil
}

// resolvePendingStatus prefers the status captured at check-in. Records
// written before that capture existed are recomputed from the stored
// check-in time.
func (s *AttendanceServiceImpl) resolvePendingStatus(ctx context.Context, rec attendance.Record) (attendance.Status, error) {
	if rec.PendingStatus != nil {
		return *rec.PendingStatus, nil
	}
	if rec.CheckInTime == nil {
		return attendance.StatusAbsent, nil
	}
	view, err := s.resolver.Resolve(ctx, rec.TenantID, rec.EmployeeID, *rec.CheckInTime)
	if err != nil {
		return "", err
	}
	return computeStatus(lateMinutes(view.ShiftStart, *rec.CheckInTime), view.GraceMinutes), nil
}

// Reject implements attendance.Service. The audit entry is written before
// the delete so the discard is reconstructable even though the record is
// gone.
func (s *AttendanceServiceImpl) Reject(ctx context.Context, p tenant.Principal, attendanceID string, remarks string) error {
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opReject); err != nil {
		return err
	}

	rec, err := s.attendanceRepo.GetByID(ctx, attendanceID, p.Tenant())
	if err != nil {
		return err
	}
	if rec.Status != attendance.StatusPendingApproval {
		return attendance.ErrNotPendingApproval
	}
	if rec.Frozen {
		return attendance.ErrFrozenRecord
	}

	before := snapshot(rec)
	before["remarks"] = remarks
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.audit(ctx, p, "attendance.rejected", rec.ID, before, nil); err != nil {
			return err
		}
		return s.attendanceRepo.Delete(ctx, rec.ID, p.Tenant())
	})
	if err != nil {
		return err
	}
	s.publish(rec)

	return nil
}

// History implements attendance.Service.
func (s *AttendanceServiceImpl) History(ctx context.Context, p tenant.Principal, limit int) ([]attendance.Record, error) {
	if p.Employee() == "" {
		return nil, tenant.ErrNoEmployeeProfile
	}
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opHistory); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.attendanceRepo.ListByEmployee(ctx, p.Employee(), p.Tenant(), limit)
}

// MonthSummary implements attendance.Service.
func (s *AttendanceServiceImpl) MonthSummary(ctx context.Context, p tenant.Principal) (attendance.Summary, error) {
	if p.Employee() == "" {
		return attendance.Summary{}, tenant.ErrNoEmployeeProfile
	}
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opSummary); err != nil {
		return attendance.Summary{}, err
	}
	now := s.now().UTC()
	return s.attendanceRepo.MonthSummary(ctx, p.Employee(), p.Tenant(), now.Year(), now.Month())
}

// MarkAbsentees implements attendance.Service. It sweeps every tenant for
// employees who had a shift assigned yesterday and no record, and writes
// absent rows for them. Employee-dates that gained a record in the
// meantime are skipped by the insert.
func (s *AttendanceServiceImpl) MarkAbsentees(ctx context.Context, asOf time.Time) (int, error) {
	yesterday := dateOf(asOf.UTC().AddDate(0, 0, -1))

	allSettings, err := s.policyRepo.ListSettings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tenant settings: %w", err)
	}

	total := 0
	for _, settings := range allSettings {
		employees, err := s.policyRepo.ListActiveEmployees(ctx, settings.TenantID)
		if err != nil {
			slog.Error("absence sweep failed to list employees",
				"tenant_id", settings.TenantID, "error", err)
			continue
		}

		var recs []attendance.Record
		now := s.now().UTC()
		for _, emp := range employees {
			if emp.ShiftID == nil {
				continue
			}
			recs = append(recs, attendance.Record{
				ID:             uuid.New().String(),
				TenantID:       settings.TenantID,
				EmployeeID:     emp.ID,
				Date:           yesterday,
				Method:         attendance.MethodManual,
				Status:         attendance.StatusAbsent,
				Regularization: attendance.RegNone,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}
		if len(recs) == 0 {
			continue
		}

		inserted, err := s.attendanceRepo.BulkCreateAbsences(ctx, recs)
		if err != nil {
			slog.Error("absence sweep failed to insert records",
				"tenant_id", settings.TenantID, "error", err)
			continue
		}
		total += inserted
	}

	return total, nil
}

func (s *AttendanceServiceImpl) audit(ctx context.Context, p tenant.Principal, action string, entityID string, before, after map[string]any) error {
	err := s.auditRepo.Record(ctx, audit.Entry{
		ID:         uuid.New().String(),
		TenantID:   p.TenantID,
		ActorID:    p.UserID,
		ActorRole:  string(p.Role),
		Action:     action,
		EntityType: "attendance_record",
		EntityID:   entityID,
		Before:     before,
		After:      after,
		IP:         p.IP,
		UserAgent:  p.UserAgent,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func (s *AttendanceServiceImpl) publish(rec attendance.Record) {
	s.publisher.Publish(rec.TenantID, notification.Event{
		Type:       notification.TypeAttendanceUpdated,
		TenantID:   rec.TenantID,
		EmployeeID: rec.EmployeeID,
		Status:     string(rec.Status),
		Timestamp:  s.now().UTC(),
	})
}

func snapshot(rec attendance.Record) map[string]any {
	snap := map[string]any{
		"status":       string(rec.Status),
		"method":       string(rec.Method),
		"date":         rec.Date.Format("2006-01-02"),
		"late_minutes": rec.LateMinutes,
		"frozen":       rec.Frozen,
	}
	if rec.CheckInTime != nil {
		snap["check_in_time"] = rec.CheckInTime.Format(time.RFC3339)
	}
	if rec.CheckOutTime != nil {
		snap["check_out_time"] = rec.CheckOutTime.Format(time.RFC3339)
	}
	if rec.WorkingHours != nil {
		snap["working_hours"] = *rec.WorkingHours
	}
	return snap
}
