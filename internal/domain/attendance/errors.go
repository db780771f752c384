package attendance

import "errors"

// Attendance domain errors
var (
	// Check-in errors
	ErrDuplicateCheckIn  = errors.New("you have already checked in today")
	ErrSecurityRejected  = errors.New("mock location detected and not allowed by your organization")
	ErrOutOfRange        = errors.New("you are outside the allowed radius")
	ErrNotCheckedIn      = errors.New("you have not checked in today")
	ErrAlreadyCheckedOut = errors.New("you have already checked out today")

	// Approval errors
	ErrNotPendingApproval = errors.New("attendance is not pending approval")

	// Regularization errors
	ErrRegularizationWindowClosed = errors.New("regularization window has closed for this date")
	ErrRegularizationPending      = errors.New("a regularization request is already pending")
	ErrRegularizationProcessed    = errors.New("regularization has already been approved or rejected")
	ErrNotRegularizationPending   = errors.New("no pending regularization request on this record")
	ErrReasonRequired             = errors.New("a reason is required")

	// General errors
	ErrFrozenRecord       = errors.New("attendance record is frozen and can no longer change")
	ErrStatusFinalized    = errors.New("attendance status is managed by leave or remote work and cannot change here")
	ErrAttendanceNotFound = errors.New("attendance record not found")
)
