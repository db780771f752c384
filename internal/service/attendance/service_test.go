package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/policy"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/qrtoken"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
	tenantService "github.com/cmlabs-hris/attendance-engine-go/internal/service/tenant"
)

// attendanceRepoFake enforces the one-record-per-(employee, date)
// invariant under a single mutex, mirroring the ON CONFLICT behavior of
// the real repository.
type attendanceRepoFake struct {
	mu      sync.Mutex
	records map[string]attendance.Record

	onDelete func()
}

func newAttendanceRepoFake() *attendanceRepoFake {
	return &attendanceRepoFake{records: map[string]attendance.Record{}}
}

func dayKey(tenantID, employeeID string, date time.Time) string {
	return tenantID + "|" + employeeID + "|" + date.Format("2006-01-02")
}

func (f *attendanceRepoFake) Create(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := dayKey(rec.TenantID, rec.EmployeeID, rec.Date)
	for _, existing := range f.records {
		if dayKey(existing.TenantID, existing.EmployeeID, existing.Date) == key {
			return attendance.Record{}, attendance.ErrDuplicateCheckIn
		}
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *attendanceRepoFake) GetByID(_ context.Context, id string, tenantID string) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.TenantID != tenantID {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	return rec, nil
}

func (f *attendanceRepoFake) GetByEmployeeAndDate(_ context.Context, employeeID string, date time.Time, tenantID string) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := dayKey(tenantID, employeeID, date)
	for _, rec := range f.records {
		if dayKey(rec.TenantID, rec.EmployeeID, rec.Date) == key {
			return rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrAttendanceNotFound
}

func (f *attendanceRepoFake) Update(_ context.Context, rec attendance.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.records[rec.ID]
	if !ok || existing.Frozen {
		return attendance.ErrAttendanceNotFound
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *attendanceRepoFake) Delete(_ context.Context, id string, tenantID string) error {
	if f.onDelete != nil {
		f.onDelete()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.TenantID != tenantID {
		return attendance.ErrAttendanceNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *attendanceRepoFake) ListByEmployee(_ context.Context, employeeID string, tenantID string, limit int) ([]attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance.Record
	for _, rec := range f.records {
		if rec.EmployeeID == employeeID && rec.TenantID == tenantID {
			out = append(out, rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *attendanceRepoFake) MonthSummary(_ context.Context, employeeID string, tenantID string, year int, month time.Month) (attendance.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := attendance.Summary{EmployeeID: employeeID, Year: year, Month: month}
	for _, rec := range f.records {
		if rec.EmployeeID != employeeID || rec.TenantID != tenantID ||
			rec.Date.Year() != year || rec.Date.Month() != month {
			continue
		}
		switch rec.Status {
		case attendance.StatusPresent:
			sum.TotalPresent++
		case attendance.StatusLate:
			sum.TotalLate++
		case attendance.StatusAbsent:
			sum.TotalAbsent++
		case attendance.StatusHalfDay:
			sum.TotalHalfDay++
		case attendance.StatusOnLeave:
			sum.TotalOnLeave++
		}
	}
	return sum, nil
}

func (f *attendanceRepoFake) FreezeMonth(_ context.Context, tenantID string, year int, month time.Month) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, rec := range f.records {
		if rec.TenantID == tenantID && rec.Date.Year() == year && rec.Date.Month() == month && !rec.Frozen {
			rec.Frozen = true
			f.records[id] = rec
			n++
		}
	}
	return n, nil
}

func (f *attendanceRepoFake) BulkCreateAbsences(_ context.Context, recs []attendance.Record) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := 0
	for _, rec := range recs {
		conflict := false
		for _, existing := range f.records {
			if dayKey(existing.TenantID, existing.EmployeeID, existing.Date) == dayKey(rec.TenantID, rec.EmployeeID, rec.Date) {
				conflict = true
				break
			}
		}
		if !conflict {
			f.records[rec.ID] = rec
			inserted++
		}
	}
	return inserted, nil
}

func (f *attendanceRepoFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *attendanceRepoFake) dump() map[string]attendance.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]attendance.Record, len(f.records))
	for id, rec := range f.records {
		out[id] = rec
	}
	return out
}

func (f *attendanceRepoFake) restore(records map[string]attendance.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
}

// txPassthrough applies the function with no transaction semantics; the
// rollback-sensitive tests use txRollbackFake instead.
type txPassthrough struct{}

func (txPassthrough) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// txRollbackFake undoes repository writes when the wrapped function
// fails, mirroring what a real transaction rollback leaves behind.
type txRollbackFake struct {
	repo *attendanceRepoFake
}

func (f *txRollbackFake) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	saved := f.repo.dump()
	if err := fn(ctx); err != nil {
		f.repo.restore(saved)
		return err
	}
	return nil
}

type resolverFake struct {
	view policy.View
	err  error
}

func (f *resolverFake) Resolve(context.Context, string, string, time.Time) (policy.View, error) {
	if f.err != nil {
		return policy.View{}, f.err
	}
	return f.view, nil
}

type tokenServiceFake struct {
	tokens map[string]qrtoken.Token
}

func (f *tokenServiceFake) Issue(context.Context, tenant.Principal, string, time.Duration) (qrtoken.Token, error) {
	return qrtoken.Token{}, nil
}

func (f *tokenServiceFake) Validate(_ context.Context, token string) (qrtoken.Token, error) {
	tok, ok := f.tokens[token]
	if !ok {
		return qrtoken.Token{}, qrtoken.ErrTokenNotFound
	}
	return tok, nil
}

type auditRepoFake struct {
	mu        sync.Mutex
	entries   []audit.Entry
	recordErr error
}

func (f *auditRepoFake) Record(_ context.Context, entry audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *auditRepoFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *auditRepoFake) byAction(action string) []audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []audit.Entry
	for _, e := range f.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type publisherFake struct {
	mu     sync.Mutex
	events []notification.Event
}

func (f *publisherFake) Publish(_ string, event notification.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *publisherFake) last() (notification.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return notification.Event{}, false
	}
	return f.events[len(f.events)-1], true
}

type fixture struct {
	svc       *AttendanceServiceImpl
	repo      *attendanceRepoFake
	resolver  *resolverFake
	tokens    *tokenServiceFake
	audits    *auditRepoFake
	publisher *publisherFake
	policies  *policyRepoFake
}

var (
	hqLat = -6.2
	hqLon = 106.8
)

// shiftStart is 09:00 on the fixture's "today".
var (
	shiftStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	shiftEnd   = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
)

func defaultView() policy.View {
	return policy.View{
		TenantID:                 "tenant-a",
		EmployeeID:               "emp-1",
		EmployeeRole:             tenant.RoleEmployee,
		ShiftStart:               shiftStart,
		ShiftEnd:                 shiftEnd,
		GraceMinutes:             15,
		RequireGeoValidation:     true,
		EffectiveRadiusM:         100,
		BranchLatitude:           &hqLat,
		BranchLongitude:          &hqLon,
		AllowMockLocation:        false,
		RequireApproval:          false,
		RegularizationWindowDays: 7,
		FreezeDay:                26,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:      newAttendanceRepoFake(),
		resolver:  &resolverFake{view: defaultView()},
		tokens:    &tokenServiceFake{tokens: map[string]qrtoken.Token{}},
		audits:    &auditRepoFake{},
		publisher: &publisherFake{},
		policies:  &policyRepoFake{},
	}
	f.svc = &AttendanceServiceImpl{
		tx:             txPassthrough{},
		attendanceRepo: f.repo,
		policyRepo:     f.policies,
		resolver:       f.resolver,
		tokens:         f.tokens,
		guard:          tenantService.NewGuard(f.audits),
		auditRepo:      f.audits,
		publisher:      f.publisher,
		now:            func() time.Time { return shiftStart.Add(5 * time.Minute) },
	}
	return f
}

type policyRepoFake struct {
	settings  []policy.Settings
	employees map[string][]policy.Employee
}

func (f *policyRepoFake) GetEmployee(context.Context, string, string) (policy.Employee, error) {
	return policy.Employee{}, policy.ErrEmployeeNotFound
}

func (f *policyRepoFake) GetShift(context.Context, string, string) (policy.Shift, error) {
	return policy.Shift{}, policy.ErrNoShiftAssigned
}

func (f *policyRepoFake) GetBranch(context.Context, string, string) (policy.Branch, error) {
	return policy.Branch{}, policy.ErrNoLocationConfigured
}

func (f *policyRepoFake) GetSettings(context.Context, string) (policy.Settings, error) {
	return policy.Settings{}, policy.ErrSettingsNotFound
}

func (f *policyRepoFake) ListSettings(context.Context) ([]policy.Settings, error) {
	return f.settings, nil
}

func (f *policyRepoFake) ListActiveEmployees(_ context.Context, tenantID string) ([]policy.Employee, error) {
	return f.employees[tenantID], nil
}

func employeePrincipal(employeeID string) tenant.Principal {
	tenantA := "tenant-a"
	return tenant.Principal{
		UserID:     "user-" + employeeID,
		EmployeeID: &employeeID,
		TenantID:   &tenantA,
		Role:       tenant.RoleEmployee,
	}
}

func managerPrincipal() tenant.Principal {
	tenantA := "tenant-a"
	emp := "emp-mgr"
	return tenant.Principal{
		UserID:     "user-mgr",
		EmployeeID: &emp,
		TenantID:   &tenantA,
		Role:       tenant.RoleManager,
	}
}

func atBranch() attendance.CheckInRequest {
	return attendance.CheckInRequest{
		Method:    attendance.MethodGeo,
		Latitude:  &hqLat,
		Longitude: &hqLon,
	}
}

func TestCheckInStatusByLateness(t *testing.T) {
	cases := []struct {
		name        string
		minutesLate int
		want        attendance.Status
	}{
		{"on time", 0, attendance.StatusPresent},
		{"inside grace", 15, attendance.StatusPresent},
		{"just past grace", 16, attendance.StatusLate},
		{"two hours late", 120, attendance.StatusLate},
		{"beyond two hours", 121, attendance.StatusHalfDay},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.svc.now = func() time.Time {
				return shiftStart.Add(time.Duration(tc.minutesLate) * time.Minute)
			}

			rec, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), atBranch())
			require.NoError(t, err)
			assert.Equal(t, tc.want, rec.Status)
			assert.Equal(t, tc.minutesLate, rec.LateMinutes)
		})
	}
}

func TestCheckInEarlyArrivalClampsToZero(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time { return shiftStart.Add(-30 * time.Minute) }

	rec, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), atBranch())
	require.NoError(t, err)
	assert.Equal(t, 0, rec.LateMinutes)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
}

func TestCheckInConcurrentScansCreateOneRecord(t *testing.T) {
	f := newFixture(t)
	p := employeePrincipal("emp-1")

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CheckIn(context.Background(), p, atBranch())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success, duplicate := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			success++
		default:
			require.ErrorIs(t, err, attendance.ErrDuplicateCheckIn)
			duplicate++
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, attempts-1, duplicate)
	assert.Equal(t, 1, f.repo.count())
}

func TestCheckInMockLocationPrecedesGeofence(t *testing.T) {
	f := newFixture(t)

	// Coordinates far outside the fence; the mock check still fires first.
	farLat, farLon := 1.0, 100.0
	req := attendance.CheckInRequest{
		Method:       attendance.MethodGeo,
		Latitude:     &farLat,
		Longitude:    &farLon,
		MockLocation: true,
	}

	_, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), req)
	assert.ErrorIs(t, err, attendance.ErrSecurityRejected)
}

func TestCheckInMockLocationAllowedByPolicy(t *testing.T) {
	f := newFixture(t)
	f.resolver.view.AllowMockLocation = true

	req := atBranch()
	req.MockLocation = true

	_, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), req)
	assert.NoError(t, err)
}

func TestCheckInGeofenceTolerance(t *testing.T) {
	f := newFixture(t)

	// ~103 m north of the branch: outside the 100 m radius but inside the
	// 5 m drift allowance.
	nearLat := hqLat + 103.0/111195.0
	req := attendance.CheckInRequest{Method: attendance.MethodGeo, Latitude: &nearLat, Longitude: &hqLon}
	_, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), req)
	assert.NoError(t, err)

	// ~115 m north is out of range even with the allowance.
	g := newFixture(t)
	farLat := hqLat + 115.0/111195.0
	req = attendance.CheckInRequest{Method: attendance.MethodGeo, Latitude: &farLat, Longitude: &hqLon}
	_, err = g.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), req)
	assert.ErrorIs(t, err, attendance.ErrOutOfRange)
}

func TestCheckInMissingCoordinatesFailsClosed(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), attendance.CheckInRequest{
		Method: attendance.MethodManual,
	})
	assert.ErrorIs(t, err, attendance.ErrOutOfRange)
	// The message names the actual problem, not a zero-meter distance.
	assert.ErrorContains(t, err, "no location")
}

func TestCheckInDuplicateReportedBeforeLocationScreening(t *testing.T) {
	f := newFixture(t)
	p := employeePrincipal("emp-1")

	_, err := f.svc.CheckIn(context.Background(), p, atBranch())
	require.NoError(t, err)

	// A second attempt with a spoofed location still gets the benign
	// duplicate answer.
	req := atBranch()
	req.MockLocation = true
	_, err = f.svc.CheckIn(context.Background(), p, req)
	assert.ErrorIs(t, err, attendance.ErrDuplicateCheckIn)

	farLat := hqLat + 1.0
	req = attendance.CheckInRequest{Method: attendance.MethodGeo, Latitude: &farLat, Longitude: &hqLon}
	_, err = f.svc.CheckIn(context.Background(), p, req)
	assert.ErrorIs(t, err, attendance.ErrDuplicateCheckIn)
}

func TestCheckInRolledBackWhenAuditFails(t *testing.T) {
	f := newFixture(t)
	f.svc.tx = &txRollbackFake{repo: f.repo}
	f.audits.recordErr = errors.New("audit store unavailable")
	p := employeePrincipal("emp-1")

	_, err := f.svc.CheckIn(context.Background(), p, atBranch())
	require.Error(t, err)
	assert.Equal(t, 0, f.repo.count())

	// Once the audit store recovers the employee is not locked out.
	f.audits.recordErr = nil
	rec, err := f.svc.CheckIn(context.Background(), p, atBranch())
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.Len(t, f.audits.byAction("attendance.check_in"), 1)
}

func TestCheckInSkipsGeofenceWhenNotRequired(t *testing.T) {
	f := newFixture(t)
	f.resolver.view.RequireGeoValidation = false

	rec, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), attendance.CheckInRequest{
		Method: attendance.MethodManual,
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
}

func TestCheckInQRPendingApprovalStoresComputedStatus(t *testing.T) {
	f := newFixture(t)
	f.resolver.view.RequireApproval = true
	f.tokens.tokens["tok-1"] = qrtoken.Token{TenantID: "tenant-a", LocationID: "branch-hq"}
	f.svc.now = func() time.Time { return shiftStart.Add(40 * time.Minute) }

	req := atBranch()
	req.Method = attendance.MethodQR
	req.QRToken = "tok-1"

	rec, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), req)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPendingApproval, rec.Status)
	require.NotNil(t, rec.PendingStatus)
	assert.Equal(t, attendance.StatusLate, *rec.PendingStatus)
}

func TestCheckInForeignTenantTokenAuditedOnce(t *testing.T) {
	f := newFixture(t)
	f.tokens.tokens["tok-b"] = qrtoken.Token{TenantID: "tenant-b", LocationID: "branch-x"}

	req := atBranch()
	req.Method = attendance.MethodQR
	req.QRToken = "tok-b"

	_, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), req)
	assert.ErrorIs(t, err, tenant.ErrIsolationViolation)
	assert.Len(t, f.audits.byAction("tenant.isolation_violation"), 1)
	assert.Equal(t, 0, f.repo.count())
}

func TestCheckInAuditsAndPublishes(t *testing.T) {
	f := newFixture(t)

	rec, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), atBranch())
	require.NoError(t, err)

	entries := f.audits.byAction("attendance.check_in")
	require.Len(t, entries, 1)
	assert.Equal(t, rec.ID, entries[0].EntityID)

	event, ok := f.publisher.last()
	require.True(t, ok)
	assert.Equal(t, notification.TypeAttendanceUpdated, event.Type)
	assert.Equal(t, "emp-1", event.EmployeeID)
	assert.Equal(t, string(attendance.StatusPresent), event.Status)
}

func TestCheckInRequiresEmployeeProfile(t *testing.T) {
	f := newFixture(t)
	tenantA := "tenant-a"
	p := tenant.Principal{UserID: "user-x", TenantID: &tenantA, Role: tenant.RoleEmployee}

	_, err := f.svc.CheckIn(context.Background(), p, atBranch())
	assert.ErrorIs(t, err, tenant.ErrNoEmployeeProfile)
}

func TestCheckOutComputesWorkingHours(t *testing.T) {
	f := newFixture(t)
	p := employeePrincipal("emp-1")

	_, err := f.svc.CheckIn(context.Background(), p, atBranch())
	require.NoError(t, err)

	// Checked in at 09:05; out at 17:50 is 8.75 hours.
	f.svc.now = func() time.Time { return time.Date(2026, 3, 10, 17, 50, 0, 0, time.UTC) }
	rec, err := f.svc.CheckOut(context.Background(), p)
	require.NoError(t, err)

	require.NotNil(t, rec.WorkingHours)
	assert.InDelta(t, 8.75, *rec.WorkingHours, 0.001)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CheckOut(context.Background(), employeePrincipal("emp-1"))
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)
}

func TestCheckOutTwice(t *testing.T) {
	f := newFixture(t)
	p := employeePrincipal("emp-1")

	_, err := f.svc.CheckIn(context.Background(), p, atBranch())
	require.NoError(t, err)
	_, err = f.svc.CheckOut(context.Background(), p)
	require.NoError(t, err)

	_, err = f.svc.CheckOut(context.Background(), p)
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
}

func TestCheckOutFrozenRecord(t *testing.T) {
	f := newFixture(t)
	p := employeePrincipal("emp-1")

	_, err := f.svc.CheckIn(context.Background(), p, atBranch())
	require.NoError(t, err)
	_, err = f.repo.FreezeMonth(context.Background(), "tenant-a", 2026, time.March)
	require.NoError(t, err)

	_, err = f.svc.CheckOut(context.Background(), p)
	assert.ErrorIs(t, err, attendance.ErrFrozenRecord)
}

func TestCheckOutLeaveDayRejected(t *testing.T) {
	f := newFixture(t)
	p := employeePrincipal("emp-1")

	in := shiftStart
	_, err := f.repo.Create(context.Background(), attendance.Record{
		ID:          "att-leave",
		TenantID:    "tenant-a",
		EmployeeID:  "emp-1",
		Date:        dateOf(shiftStart),
		CheckInTime: &in,
		Status:      attendance.StatusOnLeave,
	})
	require.NoError(t, err)

	_, err = f.svc.CheckOut(context.Background(), p)
	assert.ErrorIs(t, err, attendance.ErrStatusFinalized)
}

func pendingRecord(t *testing.T, f *fixture) attendance.Record {
	t.Helper()

	f.resolver.view.RequireApproval = true
	f.tokens.tokens["tok-1"] = qrtoken.Token{TenantID: "tenant-a", LocationID: "branch-hq"}

	req := atBranch()
	req.Method = attendance.MethodQR
	req.QRToken = "tok-1"

	rec, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), req)
	require.NoError(t, err)
	require.Equal(t, attendance.StatusPendingApproval, rec.Status)
	return rec
}

func TestApproveUsesCheckInTimeStatus(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time { return shiftStart.Add(10 * time.Minute) }
	rec := pendingRecord(t, f)

	// Approval three hours later must not turn a present day into half_day.
	f.svc.now = func() time.Time { return shiftStart.Add(3 * time.Hour) }
	approved, err := f.svc.Approve(context.Background(), managerPrincipal(), rec.ID)
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusPresent, approved.Status)
	assert.Nil(t, approved.PendingStatus)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "user-mgr", *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)
}

func TestApproveRequiresManager(t *testing.T) {
	f := newFixture(t)
	rec := pendingRecord(t, f)

	_, err := f.svc.Approve(context.Background(), employeePrincipal("emp-2"), rec.ID)
	assert.ErrorIs(t, err, tenant.ErrRoleInsufficient)
}

func TestApproveNonPendingRecord(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), atBranch())
	require.NoError(t, err)

	_, err = f.svc.Approve(context.Background(), managerPrincipal(), rec.ID)
	assert.ErrorIs(t, err, attendance.ErrNotPendingApproval)
}

func TestRejectAuditsBeforeDelete(t *testing.T) {
	f := newFixture(t)
	rec := pendingRecord(t, f)

	auditsAtDelete := -1
	f.repo.onDelete = func() {
		auditsAtDelete = len(f.audits.byAction("attendance.rejected"))
	}

	err := f.svc.Reject(context.Background(), managerPrincipal(), rec.ID, "badge shared")
	require.NoError(t, err)

	assert.Equal(t, 1, auditsAtDelete)
	_, err = f.repo.GetByID(context.Background(), rec.ID, "tenant-a")
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

	entries := f.audits.byAction("attendance.rejected")
	require.Len(t, entries, 1)
	assert.Equal(t, "badge shared", entries[0].Before["remarks"])
}

func TestHistoryReturnsOwnRecords(t *testing.T) {
	f := newFixture(t)
	p := employeePrincipal("emp-1")

	_, err := f.svc.CheckIn(context.Background(), p, atBranch())
	require.NoError(t, err)

	recs, err := f.svc.History(context.Background(), p, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMarkAbsenteesSkipsExistingRecords(t *testing.T) {
	f := newFixture(t)
	shiftID := "shift-1"
	f.policies.settings = []policy.Settings{{TenantID: "tenant-a"}}
	f.policies.employees = map[string][]policy.Employee{
		"tenant-a": {
			{ID: "emp-1", TenantID: "tenant-a", ShiftID: &shiftID, Active: true},
			{ID: "emp-2", TenantID: "tenant-a", ShiftID: &shiftID, Active: true},
			{ID: "emp-noshift", TenantID: "tenant-a", Active: true},
		},
	}

	// emp-1 checked in yesterday.
	yesterday := shiftStart.AddDate(0, 0, -1)
	f.svc.now = func() time.Time { return yesterday }
	_, err := f.svc.CheckIn(context.Background(), employeePrincipal("emp-1"), atBranch())
	require.NoError(t, err)

	// Only emp-2 actually gains a row; emp-1's existing record is skipped
	// and never counted.
	n, err := f.svc.MarkAbsentees(context.Background(), shiftStart)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := f.repo.GetByEmployeeAndDate(context.Background(), "emp-2", dateOf(yesterday), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, rec.Status)

	// emp-1's real record survives the sweep.
	rec, err = f.repo.GetByEmployeeAndDate(context.Background(), "emp-1", dateOf(yesterday), "tenant-a")
	require.NoError(t, err)
	assert.NotEqual(t, attendance.StatusAbsent, rec.Status)
}
