package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/policy"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/qrtoken"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Tenant isolation errors
	switch {
	case errors.Is(err, tenant.ErrIsolationViolation):
		Forbidden(w, "Operation crosses the tenant boundary")
	case errors.Is(err, tenant.ErrRoleInsufficient):
		Forbidden(w, "Your role does not permit this operation")
	case errors.Is(err, tenant.ErrPlatformScopeRequired):
		Forbidden(w, "Platform administrative context required")
	case errors.Is(err, tenant.ErrNoEmployeeProfile):
		Forbidden(w, "No employee profile is linked to this account")

	// Policy errors
	case errors.Is(err, policy.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, policy.ErrEmployeeInactive):
		Forbidden(w, "Employee profile is inactive")
	case errors.Is(err, policy.ErrNoShiftAssigned):
		UnprocessableEntity(w, "No active shift is assigned to this employee")
	case errors.Is(err, policy.ErrNoLocationConfigured):
		UnprocessableEntity(w, "No branch location is configured for geo validation")
	case errors.Is(err, policy.ErrSettingsNotFound):
		NotFound(w, "Tenant settings not found")

	// Attendance errors
	case errors.Is(err, attendance.ErrDuplicateCheckIn):
		Conflict(w, "You have already checked in today")
	case errors.Is(err, attendance.ErrSecurityRejected):
		UnprocessableEntity(w, "Mock location detected and not allowed by your organization")
	case errors.Is(err, attendance.ErrOutOfRange):
		UnprocessableEntity(w, err.Error())
	case errors.Is(err, attendance.ErrNotCheckedIn):
		Conflict(w, "You have not checked in today")
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		Conflict(w, "You have already checked out today")
	case errors.Is(err, attendance.ErrNotPendingApproval):
		Conflict(w, "Attendance is not pending approval")
	case errors.Is(err, attendance.ErrRegularizationWindowClosed):
		Conflict(w, "Regularization window has closed for this date")
	case errors.Is(err, attendance.ErrRegularizationPending):
		Conflict(w, "A regularization request is already pending")
	case errors.Is(err, attendance.ErrRegularizationProcessed):
		Conflict(w, "Regularization has already been processed")
	case errors.Is(err, attendance.ErrNotRegularizationPending):
		Conflict(w, "No pending regularization request on this record")
	case errors.Is(err, attendance.ErrStatusFinalized):
		Conflict(w, "This day's status is managed by leave or remote work")
	case errors.Is(err, attendance.ErrFrozenRecord):
		Conflict(w, "Attendance record is frozen and can no longer change")
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")

	// QR token errors
	case errors.Is(err, qrtoken.ErrTokenNotFound):
		NotFound(w, "QR token not found")
	case errors.Is(err, qrtoken.ErrTokenExpired):
		Gone(w, "QR token has expired")
	case errors.Is(err, qrtoken.ErrTokenInactive):
		Gone(w, "QR token has been superseded")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
