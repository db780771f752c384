package regularization

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/policy"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	tenantService "github.com/cmlabs-hris/attendance-engine-go/internal/service/tenant"
)

var (
	opRequest = tenant.Operation{Name: "regularization.request", MinRole: tenant.RoleEmployee, Mutating: true}
	opApprove = tenant.Operation{Name: "regularization.approve", MinRole: tenant.RoleManager, Mutating: true}
	opReject  = tenant.Operation{Name: "regularization.reject", MinRole: tenant.RoleManager, Mutating: true}
)

type RegularizationServiceImpl struct {
	tx             database.Transactor
	attendanceRepo attendance.Repository
	policyRepo     policy.Repository
	guard          *tenantService.Guard
	auditRepo      audit.Repository
	publisher      notification.Publisher
	now            func() time.Time
}

func NewRegularizationService(
	tx database.Transactor,
	attendanceRepo attendance.Repository,
	policyRepo policy.Repository,
	guard *tenantService.Guard,
	auditRepo audit.Repository,
	publisher notification.Publisher,
) attendance.RegularizationService {
	return &RegularizationServiceImpl{
		tx:             tx,
		attendanceRepo: attendanceRepo,
		policyRepo:     policyRepo,
		guard:          guard,
		auditRepo:      auditRepo,
		publisher:      publisher,
		now:            time.Now,
	}
}

// Request implements attendance.RegularizationService. The record must
// belong to the requesting employee and still sit inside the tenant's
// regularization window.
func (s *RegularizationServiceImpl) Request(ctx context.Context, p tenant.Principal, attendanceID string, req attendance.RegularizationRequest) (attendance.Record, error) {
	if err := req.Validate(); err != nil {
		return attendance.Record{}, err
	}
	if p.Employee() == "" {
		return attendance.Record{}, tenant.ErrNoEmployeeProfile
	}
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opRequest); err != nil {
		return attendance.Record{}, err
	}

	rec, err := s.attendanceRepo.GetByID(ctx, attendanceID, p.Tenant())
	if err != nil {
		return attendance.Record{}, err
	}
	if rec.EmployeeID != p.Employee() {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}

	// Freeze is an absolute barrier regardless of the window.
	if rec.Frozen {
		return attendance.Record{}, attendance.ErrFrozenRecord
	}
	// Leave and WFH days are owned by other systems and never enter the
	// regularization workflow.
	if rec.Status.Finalized() {
		return attendance.Record{}, attendance.ErrStatusFinalized
	}

	switch rec.Regularization {
	case attendance.RegPending:
		return attendance.Record{}, attendance.ErrRegularizationPending
	case attendance.RegApproved, attendance.RegRejected:
		return attendance.Record{}, attendance.ErrRegularizationProcessed
	}

	settings, err := s.policyRepo.GetSettings(ctx, p.Tenant())
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	now := s.now().UTC()
	age := int(dateOf(now).Sub(dateOf(rec.Date)).Hours() / 24)
	if age > settings.RegularizationWindowDays {
		return attendance.Record{}, attendance.ErrRegularizationWindowClosed
	}

	before := snapshot(rec)
	rec.Regularization = attendance.RegPending
	rec.RegularizationReason = &req.Reason
	rec.UpdatedAt = now

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.attendanceRepo.Update(ctx, rec); err != nil {
			return err
		}
		return s.audit(ctx, p, "regularization.requested", rec.ID, before, snapshot(rec))
	})
	if err != nil {
		return attendance.Record{}, err
	}
	s.publish(rec)

	return rec, nil
}

// Approve implements attendance.RegularizationService. Approval always
// normalizes the day to present; the lateness math never reruns.
func (s *RegularizationServiceImpl) Approve(ctx context.Context, p tenant.Principal, attendanceID string) (attendance.Record, error) {
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opApprove); err != nil {
		return attendance.Record{}, err
	}

	rec, err := s.attendanceRepo.GetByID(ctx, attendanceID, p.Tenant())
	if err != nil {
		return attendance.Record{}, err
	}
	if rec.Frozen {
		return attendance.Record{}, attendance.ErrFrozenRecord
	}
	if rec.Regularization != attendance.RegPending {
		return attendance.Record{}, attendance.ErrNotRegularizationPending
	}

	now := s.now().UTC()
	before := snapshot(rec)
	rec.Regularization = attendance.RegApproved
	rec.Status = attendance.StatusPresent
	rec.IsRegularized = true
	rec.ApprovedBy = &p.UserID
	rec.ApprovedAt = &now
	rec.UpdatedAt = now

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.attendanceRepo.Update(ctx, rec); err != nil {
			return err
		}
		return s.audit(ctx, p, "regularization.approved", rec.ID, before, snapshot(rec))
	})
	if err != nil {
		return attendance.Record{}, err
	}
	s.publish(rec)

	return rec, nil
}

// Reject implements attendance.RegularizationService. The original status
// stands; only the sub-state and remarks change.
func (s *RegularizationServiceImpl) Reject(ctx context.Context, p tenant.Principal, attendanceID string, remarks string) (attendance.Record, error) {
	if err := s.guard.Authorize(ctx, p, p.Tenant(), opReject); err != nil {
		return attendance.Record{}, err
	}

	rec, err := s.attendanceRepo.GetByID(ctx, attendanceID, p.Tenant())
	if err != nil {
		return attendance.Record{}, err
	}
	if rec.Frozen {
		return attendance.Record{}, attendance.ErrFrozenRecord
	}
	if rec.Regularization != attendance.RegPending {
		return attendance.Record{}, attendance.ErrNotRegularizationPending
	}

	now := s.now().UTC()
	before := snapshot(rec)
	rec.Regularization = attendance.RegRejected
	rec.RegularizationRemarks = &remarks
	rec.ApprovedBy = &p.UserID
	rec.ApprovedAt = &now
	rec.UpdatedAt = now

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.attendanceRepo.Update(ctx, rec); err != nil {
			return err
		}
		return s.audit(ctx, p, "regularization.rejected", rec.ID, before, snapshot(rec))
	})
	if err != nil {
		return attendance.Record{}, err
	}
	s.publish(rec)

	return rec, nil
}

// FreezeDueTenants implements attendance.RegularizationService. It walks
// every tenant whose freeze day matches asOf and freezes that tenant's
// current month. Re-running on the same day changes nothing.
func (s *RegularizationServiceImpl) FreezeDueTenants(ctx context.Context, asOf time.Time) error {
	asOf = asOf.UTC()

	allSettings, err := s.policyRepo.ListSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenant settings: %w", err)
	}

	for _, settings := range allSettings {
		if settings.FreezeDay != asOf.Day() {
			continue
		}

		frozen, err := s.attendanceRepo.FreezeMonth(ctx, settings.TenantID, asOf.Year(), asOf.Month())
		if err != nil {
			slog.Error("freeze batch failed for tenant",
				"tenant_id", settings.TenantID, "error", err)
			continue
		}
		if frozen > 0 {
			slog.Info("froze monthly attendance",
				"tenant_id", settings.TenantID,
				"month", asOf.Format("2006-01"),
				"records", frozen)
		}
	}

	return nil
}

func (s *RegularizationServiceImpl) audit(ctx context.Context, p tenant.Principal, action string, entityID string, before, after map[string]any) error {
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

func (s *RegularizationServiceImpl) publish(rec attendance.Record) {
	s.publisher.Publish(rec.TenantID, notification.Event{
		Type:       notification.TypeAttendanceUpdated,
		TenantID:   rec.TenantID,
		EmployeeID: rec.EmployeeID,
		Status:     string(rec.Status),
		Timestamp:  s.now().UTC(),
	})
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func snapshot(rec attendance.Record) map[string]any {
	snap := map[string]any{
		"status":         string(rec.Status),
		"regularization": string(rec.Regularization),
		"is_regularized": rec.IsRegularized,
		"frozen":         rec.Frozen,
	}
	if rec.RegularizationReason != nil {
		snap["reason"] = *rec.RegularizationReason
	}
	if rec.RegularizationRemarks != nil {
		snap["remarks"] = *rec.RegularizationRemarks
	}
	return snap
}
