package notification

import "time"

// Event types broadcast to live dashboards
const (
	TypeAttendanceUpdated = "attendance.updated"
)

// Event is one status-change broadcast on a tenant-scoped topic.
type Event struct {
	Type       string    `json:"type"`
	TenantID   string    `json:"tenant_id"`
	EmployeeID string    `json:"employee_id"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher fans events out to live observers of a tenant. Delivery is
// best effort; implementations must never block the caller and a failed
// publish is logged, not returned.
type Publisher interface {
	Publish(tenantID string, event Event)
}
