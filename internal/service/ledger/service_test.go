package ledger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/ledger"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	payrollservice "github.com/cmlabs-hris/presence-payroll/internal/service/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	f       *testutil.Fixture
	svc     ledger.LedgerService
	company company.Company
	bursar  context.Context
	staff   context.Context
	ada     employee.Employee
	run     payroll.RunResponse
}

// setup finalizes March 2025 with Ada present on the first ten days.
func setup(t *testing.T) *env {
	f := testutil.NewFixture(t)
	c := f.Company(t, 6.5244, 3.3792, 100)

	bursarUser, err := f.Users.Create(context.Background(), user.User{CompanyID: c.ID, Email: "bursar@example.com", Role: user.RoleBursar})
	require.NoError(t, err)
	ada, adaUser := f.Member(t, c.ID, "Ada Obi", user.RoleStaff)
	bayo, _ := f.Member(t, c.ID, "Bayo Ade", user.RoleStaff)

	e := &env{
		f:       f,
		svc:     NewLedgerService(f.Tx, f.Payroll, f.Approvals, f.Sessions),
		company: c,
		bursar:  f.As(t, bursarUser),
		staff:   f.As(t, adaUser),
		ada:     ada,
	}

	payrolls := payrollservice.NewPayrollService(f.Tx, f.Payroll, f.Employees, f.Sessions, f.Approvals, f.Notifier)
	for _, s := range []payroll.UpsertSalaryStructureRequest{
		{EmployeeID: ada.ID, BaseSalary: 310000, BankName: "First Bank", AccountNumber: "0123456789", AccountName: "ADA OBI"},
		{EmployeeID: bayo.ID, BaseSalary: 620000, BankName: "GTBank", AccountNumber: "0098765432", AccountName: "BAYO ADE"},
	} {
		_, err := payrolls.UpsertSalaryStructure(e.bursar, s)
		require.NoError(t, err)
	}
	e.present(t, 10)

	run, err := payrolls.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	e.run, err = payrolls.FinalizeRun(e.bursar, run.ID)
	require.NoError(t, err)
	return e
}

// present records geofence sessions for Ada on days [1, days] of March 2025.
func (e *env) present(t *testing.T, days int) {
	for d := 1; d <= days; d++ {
		_, _, err := e.f.Sessions.CreateIfAbsent(context.Background(), attendance.ClockSession{
			CompanyID:  e.company.ID,
			EmployeeID: e.ada.ID,
			WorkDate:   time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC),
			ClockInAt:  time.Date(2025, time.March, d, 7, 30, 0, 0, time.UTC),
			Source:     attendance.SessionSourceGeofence,
		})
		require.NoError(t, err)
	}
}

func TestExport_IsByteStable(t *testing.T) {
	e := setup(t)

	for _, format := range []ledger.Format{ledger.FormatCSV, ledger.FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			var first, second bytes.Buffer
			name, err := e.svc.Export(e.bursar, e.run.ID, format, &first)
			require.NoError(t, err)
			_, err = e.svc.Export(e.bursar, e.run.ID, format, &second)
			require.NoError(t, err)

			assert.Equal(t, "ledger_2025_03_"+e.run.ID+"."+string(format), name)
			assert.NotZero(t, first.Len())
			assert.Equal(t, first.Bytes(), second.Bytes())
		})
	}
}

func TestGetReconciledLedger(t *testing.T) {
	e := setup(t)

	got, err := e.svc.GetReconciledLedger(e.bursar, e.run.ID)
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "ADA OBI", got.Entries[0].AccountName)
	assert.Equal(t, "BAYO ADE", got.Entries[1].AccountName)
	assert.Equal(t, "SALARY MARCH 2025", got.Entries[0].Narration)
}

func TestExport_RequiresPayrollManage(t *testing.T) {
	e := setup(t)

	var out bytes.Buffer
	_, err := e.svc.Export(e.staff, e.run.ID, ledger.FormatCSV, &out)
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
	assert.Zero(t, out.Len())
}

func TestExport_UnsupportedFormat(t *testing.T) {
	e := setup(t)

	_, err := e.svc.Export(e.bursar, e.run.ID, ledger.Format("pdf"), &bytes.Buffer{})
	assert.ErrorIs(t, err, ledger.ErrUnsupportedFormat)
}

func TestExport_HeldByPendingDispute(t *testing.T) {
	e := setup(t)

	subject := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	_, err := e.f.Approvals.Create(context.Background(), approval.Item{
		CompanyID:   e.company.ID,
		Kind:        approval.KindAttendanceDispute,
		SubjectID:   "attempt-14",
		EmployeeID:  e.ada.ID,
		Status:      approval.StatusPending,
		SubjectDate: &subject,
	})
	require.NoError(t, err)

	_, err = e.svc.Export(e.bursar, e.run.ID, ledger.FormatCSV, &bytes.Buffer{})
	assert.ErrorIs(t, err, ledger.ErrUnresolvedDisputes)
}

func TestExport_RefusesRunWhoseAttendanceChanged(t *testing.T) {
	e := setup(t)

	// An approved dispute after finalize adds a day the run never priced.
	e.present(t, 11)

	var out bytes.Buffer
	_, err := e.svc.Export(e.bursar, e.run.ID, ledger.FormatCSV, &out)
	assert.ErrorIs(t, err, ledger.ErrStaleRun)
	assert.ErrorIs(t, err, approval.ErrInvalidState)
	assert.Zero(t, out.Len())

	_, err = e.svc.GetReconciledLedger(e.bursar, e.run.ID)
	assert.ErrorIs(t, err, ledger.ErrStaleRun)
}
