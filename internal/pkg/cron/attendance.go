package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/qrtoken"
)

// AttendanceJobs wires the attendance batch work into the scheduler:
// the monthly freeze, the day-rollover absence sweep, and QR token
// housekeeping.
type AttendanceJobs struct {
	attendanceSvc     attendance.Service
	regularizationSvc attendance.RegularizationService
	qrTokenRepo       qrtoken.Repository
}

func NewAttendanceJobs(
	attendanceSvc attendance.Service,
	regularizationSvc attendance.RegularizationService,
	qrTokenRepo qrtoken.Repository,
) *AttendanceJobs {
	return &AttendanceJobs{
		attendanceSvc:     attendanceSvc,
		regularizationSvc: regularizationSvc,
		qrTokenRepo:       qrTokenRepo,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("freeze_monthly_attendance", 1*time.Hour, j.FreezeMonthlyAttendance)
	scheduler.AddJob("mark_absent_employees", 1*time.Hour, j.MarkAbsentEmployees)
	scheduler.AddJob("deactivate_expired_qr_tokens", 15*time.Minute, j.DeactivateExpiredQRTokens)
}

// FreezeMonthlyAttendance freezes the current month for every tenant
// whose freeze day is today. Safe to re-run: already-frozen rows are
// excluded by predicate.
func (j *AttendanceJobs) FreezeMonthlyAttendance(ctx context.Context) error {
	return j.regularizationSvc.FreezeDueTenants(ctx, time.Now().UTC())
}

// MarkAbsentEmployees creates absence records for the previous day.
func (j *AttendanceJobs) MarkAbsentEmployees(ctx context.Context) error {
	// Only run at midnight (00:00-00:59 UTC)
	if time.Now().UTC().Hour() != 0 {
		return nil
	}

	count, err := j.attendanceSvc.MarkAbsentees(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	slog.Info("Cron: Marked absent employees", "count", count)
	return nil
}

// DeactivateExpiredQRTokens flips the active flag off tokens past their
// expiry. Validation is time-based either way; this keeps the partial
// uniqueness index small.
func (j *AttendanceJobs) DeactivateExpiredQRTokens(ctx context.Context) error {
	count, err := j.qrTokenRepo.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	if count > 0 {
		slog.Info("Cron: Deactivated expired QR tokens", "count", count)
	}
	return nil
}
