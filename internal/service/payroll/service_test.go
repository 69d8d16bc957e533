package payroll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
	"github.com/cmlabs-hris/presence-payroll/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type env struct {
	f       *testutil.Fixture
	svc     payroll.PayrollService
	company company.Company
	bursar  context.Context
	ada     employee.Employee
	adaUser user.User
	bayo    employee.Employee
}

func setup(t *testing.T) *env {
	f := testutil.NewFixture(t)
	c := f.Company(t, 6.5244, 3.3792, 100)

	bursar, err := f.Users.Create(context.Background(), user.User{CompanyID: c.ID, Email: "bursar@example.com", Role: user.RoleBursar})
	require.NoError(t, err)
	ada, adaUser := f.Member(t, c.ID, "Ada Obi", user.RoleStaff)
	bayo, _ := f.Member(t, c.ID, "Bayo Ade", user.RoleStaff)

	e := &env{
		f:       f,
		svc:     NewPayrollService(f.Tx, f.Payroll, f.Employees, f.Sessions, f.Approvals, f.Notifier),
		company: c,
		bursar:  f.As(t, bursar),
		ada:     ada,
		adaUser: adaUser,
		bayo:    bayo,
	}

	_, err = e.svc.UpdateSettings(e.bursar, payroll.UpdateSettingsRequest{
		LatenessFine:       ptr(money.Amount(1000)),
		LatenessGraceCount: ptr(1),
	})
	require.NoError(t, err)

	_, err = e.svc.UpsertSalaryStructure(e.bursar, payroll.UpsertSalaryStructureRequest{
		EmployeeID:         ada.ID,
		BaseSalary:         310000,
		HousingAllowance:   50000,
		TransportAllowance: 20000,
		TaxDeduction:       15000,
		PensionDeduction:   10000,
		BankName:           "First Bank",
		AccountNumber:      "0123456789",
		AccountName:        "ADA OBI",
	})
	require.NoError(t, err)
	return e
}

// present records sessions for days [1, days] of March 2025. The first late days are late.
func (e *env) present(t *testing.T, employeeID string, days, late int) {
	for d := 1; d <= days; d++ {
		_, _, err := e.f.Sessions.CreateIfAbsent(context.Background(), attendance.ClockSession{
			CompanyID:  e.company.ID,
			EmployeeID: employeeID,
			WorkDate:   time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC),
			ClockInAt:  time.Date(2025, time.March, d, 7, 30, 0, 0, time.UTC),
			IsLate:     d <= late,
			Source:     attendance.SessionSourceGeofence,
		})
		require.NoError(t, err)
	}
}

func itemFor(t *testing.T, run payroll.RunResponse, employeeID string) payroll.ItemResponse {
	for _, it := range run.Items {
		if it.EmployeeID == employeeID {
			return it
		}
	}
	t.Fatalf("no item for employee %s", employeeID)
	return payroll.ItemResponse{}
}

func TestGenerateRun_ComputesItems(t *testing.T) {
	e := setup(t)
	e.present(t, e.ada.ID, 20, 2)

	run, err := e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	assert.Equal(t, string(payroll.RunStatusDraft), run.Status)
	assert.Equal(t, 31, run.DaysInMonth)
	assert.Equal(t, 31, run.DailyRateDivisor)
	assert.Equal(t, 2, run.ItemCount)

	ada := itemFor(t, run, e.ada.ID)
	assert.Equal(t, 20, ada.DaysPresent)
	assert.Equal(t, 11, ada.AbsentDays)
	assert.Equal(t, 2, ada.LatenessCount)
	assert.Equal(t, money.Amount(10000), ada.PerDayRate)
	// 11 absent days at 100.00 plus one fined lateness at 10.00
	assert.Equal(t, money.Amount(111000), ada.AttendanceDeductions)
	assert.Equal(t, money.Amount(380000), ada.GrossPay)
	assert.Equal(t, money.Amount(244000), ada.NetPay)
	assert.Empty(t, ada.Flags)

	bayo := itemFor(t, run, e.bayo.ID)
	assert.Equal(t, []string{string(payroll.FlagMissingStructure)}, bayo.Flags)
	assert.Equal(t, money.Amount(0), bayo.NetPay)
	assert.Equal(t, 31, bayo.AbsentDays)

	assert.Equal(t, money.Amount(244000), run.TotalPayout)
	assert.Equal(t, money.Sum(ada.NetPay, bayo.NetPay), run.TotalPayout)
}

func TestGenerateRun_PeriodOverrides(t *testing.T) {
	e := setup(t)
	e.present(t, e.ada.ID, 22, 0)

	run, err := e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025, DaysInMonth: ptr(22)})
	require.NoError(t, err)
	assert.Equal(t, 22, run.DailyRateDivisor)

	ada := itemFor(t, run, e.ada.ID)
	assert.Zero(t, ada.AbsentDays)
	assert.Equal(t, money.Amount(355000), ada.NetPay)
}

func TestGenerateRun_ClampsNegativeNetPay(t *testing.T) {
	e := setup(t)
	_, err := e.svc.UpsertSalaryStructure(e.bursar, payroll.UpsertSalaryStructureRequest{
		EmployeeID:    e.bayo.ID,
		BaseSalary:    10000,
		TaxDeduction:  50000,
		BankName:      "First Bank",
		AccountNumber: "0011223344",
		AccountName:   "BAYO ADE",
	})
	require.NoError(t, err)

	run, err := e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	bayo := itemFor(t, run, e.bayo.ID)
	assert.Equal(t, money.Amount(0), bayo.NetPay)
	assert.Contains(t, bayo.Flags, string(payroll.FlagNeedsReview))

	for _, it := range run.Items {
		assert.False(t, it.NetPay.IsNegative())
	}
}

func TestGenerateRun_DuplicateReturnsExisting(t *testing.T) {
	e := setup(t)

	first, err := e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	_, err = e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.ErrorIs(t, err, payroll.ErrDuplicateRun)

	var dup *payroll.DuplicateRunError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.Existing.ID)

	// A different month is independent.
	_, err = e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 4, Year: 2025})
	assert.NoError(t, err)
}

func TestGenerateRun_ConcurrentRequestsCreateOneRun(t *testing.T) {
	e := setup(t)

	const workers = 6
	var wg sync.WaitGroup
	runs := make([]payroll.RunResponse, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			runs[i], errs[i] = e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
		}(i)
	}
	wg.Wait()

	var winner string
	for i, err := range errs {
		if err == nil {
			require.Empty(t, winner, "more than one run was generated")
			winner = runs[i].ID
		}
	}
	require.NotEmpty(t, winner)

	for _, err := range errs {
		if err == nil {
			continue
		}
		var dup *payroll.DuplicateRunError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, winner, dup.Existing.ID)
	}

	list, err := e.svc.ListRuns(e.bursar, payroll.RunFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.TotalCount)
}

func TestFinalizeRun(t *testing.T) {
	e := setup(t)
	run, err := e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	finalized, err := e.svc.FinalizeRun(e.bursar, run.ID)
	require.NoError(t, err)
	assert.Equal(t, string(payroll.RunStatusFinalized), finalized.Status)
	require.NotNil(t, finalized.FinalizedAt)

	sent := e.f.Notifier.Sent(notification.TypePayrollFinalized)
	assert.Len(t, sent, 2)

	_, err = e.svc.FinalizeRun(e.bursar, run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunNotDraft)
	assert.ErrorIs(t, e.svc.DeleteRun(e.bursar, run.ID), payroll.ErrRunNotDraft)

	got, err := e.svc.GetRun(e.bursar, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, string(payroll.RunStatusFinalized), got.Status)
}

func TestFinalizeRun_BlockedByPendingDispute(t *testing.T) {
	e := setup(t)
	e.present(t, e.ada.ID, 10, 0)
	run, err := e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	subject := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	_, err = e.f.Approvals.Create(context.Background(), approval.Item{
		CompanyID:   e.company.ID,
		Kind:        approval.KindAttendanceDispute,
		SubjectID:   "attempt-12",
		EmployeeID:  e.ada.ID,
		Status:      approval.StatusPending,
		SubjectDate: &subject,
	})
	require.NoError(t, err)

	_, err = e.svc.FinalizeRun(e.bursar, run.ID)
	assert.ErrorIs(t, err, payroll.ErrUnresolvedDisputes)
	assert.Empty(t, e.f.Notifier.Sent(notification.TypePayrollFinalized))

	got, err := e.svc.GetRun(e.bursar, run.ID)
	require.NoError(t, err)
	assert.Equal(t, string(payroll.RunStatusDraft), got.Status)
}

func TestFinalizeRun_RefusesStaleDraft(t *testing.T) {
	e := setup(t)
	e.present(t, e.ada.ID, 10, 0)
	run, err := e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	// Two more days land after generation.
	e.present(t, e.ada.ID, 12, 0)

	_, err = e.svc.FinalizeRun(e.bursar, run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunStale)

	require.NoError(t, e.svc.DeleteRun(e.bursar, run.ID))
	run, err = e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 12, itemFor(t, run, e.ada.ID).DaysPresent)
	_, err = e.svc.FinalizeRun(e.bursar, run.ID)
	require.NoError(t, err)
}

func TestDeleteRun_AllowsRegeneration(t *testing.T) {
	e := setup(t)
	run, err := e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	require.NoError(t, e.svc.DeleteRun(e.bursar, run.ID))
	_, err = e.svc.GetRun(e.bursar, run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)

	again, err := e.svc.GenerateRun(e.bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.NotEqual(t, run.ID, again.ID)
}

func TestPayroll_Permissions(t *testing.T) {
	e := setup(t)
	staff := e.f.As(t, e.adaUser)

	_, err := e.svc.GenerateRun(staff, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
	_, err = e.svc.ListSalaryStructures(staff)
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
	_, err = e.svc.GetSettings(staff)
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
}

func TestSalaryStructures(t *testing.T) {
	e := setup(t)

	got, err := e.svc.GetSalaryStructure(e.bursar, e.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", got.AccountNumber)
	assert.Equal(t, money.Amount(310000), got.BaseSalary)

	_, err = e.svc.GetSalaryStructure(e.bursar, e.bayo.ID)
	assert.ErrorIs(t, err, payroll.ErrSalaryStructureNotFound)

	_, err = e.svc.UpsertSalaryStructure(e.bursar, payroll.UpsertSalaryStructureRequest{
		EmployeeID: "00000000-0000-0000-0000-000000000000", BankName: "B", AccountNumber: "123456", AccountName: "X",
	})
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	_, err = e.svc.UpsertSalaryStructure(e.bursar, payroll.UpsertSalaryStructureRequest{
		EmployeeID: e.bayo.ID, BankName: "B", AccountNumber: "12-34", AccountName: "X", BaseSalary: -1,
	})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)

	list, err := e.svc.ListSalaryStructures(e.bursar)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSettings(t *testing.T) {
	e := setup(t)

	got, err := e.svc.GetSettings(e.bursar)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(1000), got.LatenessFine)
	assert.Equal(t, 1, got.LatenessGraceCount)
	assert.Equal(t, money.Amount(0), got.AbsentDayRate)

	updated, err := e.svc.UpdateSettings(e.bursar, payroll.UpdateSettingsRequest{AbsentDayRate: ptr(money.Amount(5000))})
	require.NoError(t, err)
	assert.Equal(t, money.Amount(5000), updated.AbsentDayRate)
	assert.Equal(t, money.Amount(1000), updated.LatenessFine)

	_, err = e.svc.UpdateSettings(e.bursar, payroll.UpdateSettingsRequest{LatenessFine: ptr(money.Amount(-1))})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}
