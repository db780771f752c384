package regularization

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
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/tenant"
	tenantService "github.com/cmlabs-hris/attendance-engine-go/internal/service/tenant"
)

type attendanceRepoFake struct {
	mu      sync.Mutex
	records map[string]attendance.Record
}

func (f *attendanceRepoFake) Create(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

func (f *attendanceRepoFake) GetByEmployeeAndDate(_ context.Context, _ string, _ time.Time, _ string) (attendance.Record, error) {
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

func (f *attendanceRepoFake) Delete(_ context.Context, id string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

func (f *attendanceRepoFake) ListByEmployee(_ context.Context, _ string, _ string, _ int) ([]attendance.Record, error) {
	return nil, nil
}

func (f *attendanceRepoFake) MonthSummary(_ context.Context, employeeID string, _ string, year int, month time.Month) (attendance.Summary, error) {
	return attendance.Summary{EmployeeID: employeeID, Year: year, Month: month}, nil
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

func (f *attendanceRepoFake) BulkCreateAbsences(_ context.Context, _ []attendance.Record) (int, error) {
	return 0, nil
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

type policyRepoFake struct {
	settings []policy.Settings
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

func (f *policyRepoFake) GetSettings(_ context.Context, tenantID string) (policy.Settings, error) {
	for _, s := range f.settings {
		if s.TenantID == tenantID {
			return s, nil
		}
	}
	return policy.Settings{}, policy.ErrSettingsNotFound
}

func (f *policyRepoFake) ListSettings(context.Context) ([]policy.Settings, error) {
	return f.settings, nil
}

func (f *policyRepoFake) ListActiveEmployees(context.Context, string) ([]policy.Employee, error) {
	return nil, nil
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

type publisherFake struct{}

func (publisherFake) Publish(string, notification.Event) {}

var testNow = time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *RegularizationServiceImpl
	repo   *attendanceRepoFake
	audits *auditRepoFake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := &attendanceRepoFake{records: map[string]attendance.Record{}}
	audits := &auditRepoFake{}
	policies := &policyRepoFake{settings: []policy.Settings{
		{TenantID: "tenant-a", RegularizationWindowDays: 7, FreezeDay: 26},
		{TenantID: "tenant-b", RegularizationWindowDays: 7, FreezeDay: 15},
	}}

	svc := &RegularizationServiceImpl{
		tx:             txPassthrough{},
		attendanceRepo: repo,
		policyRepo:     policies,
		guard:          tenantService.NewGuard(audits),
		auditRepo:      audits,
		publisher:      publisherFake{},
		now:            func() time.Time { return testNow },
	}
	return &fixture{svc: svc, repo: repo, audits: audits}
}

func seedRecord(f *fixture, id string, tenantID string, daysAgo int, mutate func(*attendance.Record)) attendance.Record {
	rec := attendance.Record{
		ID:             id,
		TenantID:       tenantID,
		EmployeeID:     "emp-1",
		Date:           time.Date(2026, 3, 20-daysAgo, 0, 0, 0, 0, time.UTC),
		Status:         attendance.StatusLate,
		Regularization: attendance.RegNone,
	}
	if mutate != nil {
		mutate(&rec)
	}
	f.repo.records[id] = rec
	return rec
}

func employeePrincipal() tenant.Principal {
	tenantA := "tenant-a"
	emp := "emp-1"
	return tenant.Principal{UserID: "user-1", EmployeeID: &emp, TenantID: &tenantA, Role: tenant.RoleEmployee}
}

func managerPrincipal() tenant.Principal {
	tenantA := "tenant-a"
	emp := "emp-mgr"
	return tenant.Principal{UserID: "user-mgr", EmployeeID: &emp, TenantID: &tenantA, Role: tenant.RoleManager}
}

func TestRequestInsideWindow(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 7, nil)

	rec, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "forgot to scan"})
	require.NoError(t, err)
	assert.Equal(t, attendance.RegPending, rec.Regularization)
	require.NotNil(t, rec.RegularizationReason)
	assert.Equal(t, "forgot to scan", *rec.RegularizationReason)

	// The day-level status never changes on request alone.
	assert.Equal(t, attendance.StatusLate, rec.Status)
}

func TestRequestOutsideWindow(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 8, nil)

	_, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "forgot to scan"})
	assert.ErrorIs(t, err, attendance.ErrRegularizationWindowClosed)
}

func TestRequestFrozenRecordFailsRegardlessOfWindow(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, func(r *attendance.Record) { r.Frozen = true })

	_, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "forgot to scan"})
	assert.ErrorIs(t, err, attendance.ErrFrozenRecord)
}

func TestRequestRequiresReason(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, nil)

	_, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{})
	assert.Error(t, err)
}

func TestRequestAlreadyPending(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, func(r *attendance.Record) { r.Regularization = attendance.RegPending })

	_, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "again"})
	assert.ErrorIs(t, err, attendance.ErrRegularizationPending)
}

func TestRequestAlreadyProcessed(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, func(r *attendance.Record) { r.Regularization = attendance.RegRejected })

	_, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "again"})
	assert.ErrorIs(t, err, attendance.ErrRegularizationProcessed)
}

func TestRequestLeaveDayRejected(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, func(r *attendance.Record) { r.Status = attendance.StatusOnLeave })

	_, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "was here"})
	assert.ErrorIs(t, err, attendance.ErrStatusFinalized)
}

func TestRequestRolledBackWhenAuditFails(t *testing.T) {
	f := newFixture(t)
	f.svc.tx = &txRollbackFake{repo: f.repo}
	f.audits.recordErr = errors.New("audit store unavailable")
	seedRecord(f, "att-1", "tenant-a", 1, nil)

	_, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "forgot to scan"})
	require.Error(t, err)

	// The sub-state never moved, so the request can simply be retried.
	rec, err := f.repo.GetByID(context.Background(), "att-1", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, attendance.RegNone, rec.Regularization)

	f.audits.recordErr = nil
	rec, err = f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "forgot to scan"})
	require.NoError(t, err)
	assert.Equal(t, attendance.RegPending, rec.Regularization)
}

func TestRequestOtherEmployeesRecord(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, func(r *attendance.Record) { r.EmployeeID = "emp-2" })

	_, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "mine"})
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestApproveNormalizesToPresent(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, func(r *attendance.Record) {
		r.Status = attendance.StatusHalfDay
		r.Regularization = attendance.RegPending
	})

	rec, err := f.svc.Approve(context.Background(), managerPrincipal(), "att-1")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.Equal(t, attendance.RegApproved, rec.Regularization)
	assert.True(t, rec.IsRegularized)
	require.NotNil(t, rec.ApprovedBy)
	assert.Equal(t, "user-mgr", *rec.ApprovedBy)
}

func TestApproveRequiresManager(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, func(r *attendance.Record) { r.Regularization = attendance.RegPending })

	_, err := f.svc.Approve(context.Background(), employeePrincipal(), "att-1")
	assert.ErrorIs(t, err, tenant.ErrRoleInsufficient)
}

func TestRejectKeepsOriginalStatus(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, func(r *attendance.Record) { r.Regularization = attendance.RegPending })

	rec, err := f.svc.Reject(context.Background(), managerPrincipal(), "att-1", "no evidence")
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLate, rec.Status)
	assert.Equal(t, attendance.RegRejected, rec.Regularization)
	assert.False(t, rec.IsRegularized)
	require.NotNil(t, rec.RegularizationRemarks)
	assert.Equal(t, "no evidence", *rec.RegularizationRemarks)
}

func TestApproveNonPending(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, nil)

	_, err := f.svc.Approve(context.Background(), managerPrincipal(), "att-1")
	assert.ErrorIs(t, err, attendance.ErrNotRegularizationPending)
}

func TestFreezeDueTenantsOnlyFreezesMatchingDay(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-a", "tenant-a", 1, nil)
	seedRecord(f, "att-b", "tenant-b", 1, nil)

	// March 26 matches tenant-a's freeze day only.
	err := f.svc.FreezeDueTenants(context.Background(), time.Date(2026, 3, 26, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	recA, _ := f.repo.GetByID(context.Background(), "att-a", "tenant-a")
	recB, _ := f.repo.GetByID(context.Background(), "att-b", "tenant-b")
	assert.True(t, recA.Frozen)
	assert.False(t, recB.Frozen)
}

func TestFreezeDueTenantsIdempotent(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-a", "tenant-a", 1, nil)

	asOf := time.Date(2026, 3, 26, 1, 0, 0, 0, time.UTC)
	require.NoError(t, f.svc.FreezeDueTenants(context.Background(), asOf))
	n, err := f.repo.FreezeMonth(context.Background(), "tenant-a", 2026, time.March)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegularizationActionsAreAudited(t *testing.T) {
	f := newFixture(t)
	seedRecord(f, "att-1", "tenant-a", 1, nil)

	_, err := f.svc.Request(context.Background(), employeePrincipal(), "att-1", attendance.RegularizationRequest{Reason: "forgot"})
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), managerPrincipal(), "att-1")
	require.NoError(t, err)

	actions := make([]string, 0, len(f.audits.entries))
	for _, e := range f.audits.entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"regularization.requested", "regularization.approved"}, actions)
}
