package attendance

import (
	"time"
)

// Status is the computed attendance state for one employee-day.
type Status string

const (
	StatusPresent         Status = "present"
	StatusLate            Status = "late"
	StatusHalfDay         Status = "half_day"
	StatusAbsent          Status = "absent"
	StatusOnLeave         Status = "on_leave"
	StatusWFH             Status = "wfh"
	StatusPendingApproval Status = "pending_approval"
)

// Finalized reports whether the status was set by an external collaborator
// and admits no further automatic transition.
func (s Status) Finalized() bool {
	return s == StatusOnLeave || s == StatusWFH
}

// Method is how the check-in event reached the engine.
type Method string

const (
	MethodManual    Method = "manual"
	MethodGeo       Method = "geo"
	MethodQR        Method = "qr"
	MethodBiometric Method = "biometric"
)

// RegState is the regularization sub-state of a record.
type RegState string

const (
	RegNone     RegState = "none"
	RegPending  RegState = "pending"
	RegApproved RegState = "approved"
	RegRejected RegState = "rejected"
)

// Record is one attendance row. At most one record exists per
// (tenant, employee, date); the constraint is enforced atomically at
// creation. A frozen record is immutable.
type Record struct {
	ID         string
	TenantID   string
	EmployeeID string
	Date       time.Time

	CheckInTime  *time.Time
	CheckOutTime *time.Time
	Method       Method
	Status       Status

	// PendingStatus holds the would-be computed status while the record
	// sits in pending_approval, so approval delay never penalizes the
	// employee.
	PendingStatus *Status

	LateMinutes  int
	WorkingHours *float64

	CheckInLatitude  *float64
	CheckInLongitude *float64

	Regularization        RegState
	RegularizationReason  *string
	RegularizationRemarks *string
	IsRegularized         bool

	ApprovedBy *string
	ApprovedAt *time.Time

	Frozen bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary aggregates one employee's month for dashboards.
type Summary struct {
	EmployeeID   string
	Year         int
	Month        time.Month
	TotalPresent int
	TotalLate    int
	TotalAbsent  int
	TotalHalfDay int
	TotalOnLeave int
}
