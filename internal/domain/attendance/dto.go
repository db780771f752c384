package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

// CheckInRequest is an inbound check-in event. Coordinates are optional
// for manual check-ins; QRToken is set only when Method is qr.
type CheckInRequest struct {
	Method       Method   `json:"method"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	MockLocation bool     `json:"mock_location,omitempty"`
	QRToken      string   `json:"qr_token,omitempty"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	switch r.Method {
	case MethodManual, MethodGeo, MethodQR, MethodBiometric:
	case "":
		errs = append(errs, validator.ValidationError{
			Field:   "method",
			Message: "method is required",
		})
	default:
		errs = append(errs, validator.ValidationError{
			Field:   "method",
			Message: "method must be one of manual, geo, qr, biometric",
		})
	}

	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "coordinates",
			Message: "latitude and longitude must be provided together",
		})
	}

	if r.Method == MethodQR && validator.IsEmpty(r.QRToken) {
		errs = append(errs, validator.ValidationError{
			Field:   "qr_token",
			Message: "qr_token is required for qr check-in",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RegularizationRequest struct {
	Reason string `json:"reason"`
}

func (r *RegularizationRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RejectRequest struct {
	Remarks string `json:"remarks"`
}

// Response is the outward shape of a Record.
type Response struct {
	ID           string   `json:"id"`
	EmployeeID   string   `json:"employee_id"`
	Date         string   `json:"date"`
	CheckInTime  *string  `json:"check_in_time"`
	CheckOutTime *string  `json:"check_out_time"`
	Method       Method   `json:"method"`
	Status       Status   `json:"status"`
	LateMinutes  int      `json:"late_minutes"`
	WorkingHours *float64 `json:"working_hours"`

	Regularization RegState `json:"regularization"`
	IsRegularized  bool     `json:"is_regularized"`
	Frozen         bool     `json:"frozen"`
}

// ToResponse converts a Record for the HTTP surface.
func ToResponse(rec Record) Response {
	return Response{
		ID:             rec.ID,
		EmployeeID:     rec.EmployeeID,
		Date:           rec.Date.Format("2006-01-02"),
		CheckInTime:    timePtrToString(rec.CheckInTime),
		CheckOutTime:   timePtrToString(rec.CheckOutTime),
		Method:         rec.Method,
		Status:         rec.Status,
		LateMinutes:    rec.LateMinutes,
		WorkingHours:   rec.WorkingHours,
		Regularization: rec.Regularization,
		IsRegularized:  rec.IsRegularized,
		Frozen:         rec.Frozen,
	}
}

// SummaryResponse is the outward shape of a monthly Summary.
type SummaryResponse struct {
	EmployeeID   string `json:"employee_id"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	TotalPresent int    `json:"total_present"`
	TotalLate    int    `json:"total_late"`
	TotalAbsent  int    `json:"total_absent"`
	TotalHalfDay int    `json:"total_half_day"`
	TotalOnLeave int    `json:"total_on_leave"`
}

func ToSummaryResponse(sum Summary) SummaryResponse {
	return SummaryResponse{
		EmployeeID:   sum.EmployeeID,
		Year:         sum.Year,
		Month:        int(sum.Month),
		TotalPresent: sum.TotalPresent,
		TotalLate:    sum.TotalLate,
		TotalAbsent:  sum.TotalAbsent,
		TotalHalfDay: sum.TotalHalfDay,
		TotalOnLeave: sum.TotalOnLeave,
	}
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format("2006-01-02 15:04:05")
	return &format
}
