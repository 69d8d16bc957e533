package attendance

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/ledger"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/reconciliation"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/storage"
	approvalservice "github.com/cmlabs-hris/presence-payroll/internal/service/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/service/file"
	ledgerservice "github.com/cmlabs-hris/presence-payroll/internal/service/ledger"
	payrollservice "github.com/cmlabs-hris/presence-payroll/internal/service/payroll"
	reconciliationservice "github.com/cmlabs-hris/presence-payroll/internal/service/reconciliation"
	"github.com/cmlabs-hris/presence-payroll/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A staff member clocks in 650 m from a 500 m fence, disputes it, and is paid for the day once the
// principal signs off. The override shows up in reconciliation and the ledger waits for every
// open dispute in the month.
func TestPipeline_DisputedDayIsPaidAndAudited(t *testing.T) {
	f := testutil.NewFixture(t)
	local, err := storage.NewLocalStorage(t.TempDir(), "http://files")
	require.NoError(t, err)

	approvals := approvalservice.NewApprovalService(f.Tx, f.Approvals, f.Employees, f.Users, file.NewFileService(local, 0), f.Notifier,
		map[approval.Kind]approval.KindPolicy{
			approval.KindAttendanceDispute: NewDisputePolicy(f.Attempts, f.Sessions, f.Approvals, f.Companies, f.Defaults),
		})
	payrolls := payrollservice.NewPayrollService(f.Tx, f.Payroll, f.Employees, f.Sessions, f.Approvals, f.Notifier)
	reports := reconciliationservice.NewReconciliationService(f.Tx, f.Payroll, f.Approvals, f.Attempts, f.Sessions)
	ledgers := ledgerservice.NewLedgerService(f.Tx, f.Payroll, f.Approvals, f.Sessions)

	c := f.Company(t, schoolLat, schoolLng, 500)
	ada, adaUser := f.Member(t, c.ID, "Ada Obi", user.RoleStaff)
	_, principalUser := f.Member(t, c.ID, "Mrs Bello", user.RolePrincipal)
	bursarUser, err := f.Users.Create(context.Background(), user.User{CompanyID: c.ID, Email: "bursar@example.com", Role: user.RoleBursar})
	require.NoError(t, err)

	staff := f.As(t, adaUser)
	principal := f.As(t, principalUser)
	bursar := f.As(t, bursarUser)

	// Day 3: out of range.
	failed, err := newService(f, at(3, 7, 30)).RecordAttempt(staff, north(650))
	require.NoError(t, err)
	require.Equal(t, string(attendance.OutcomeFailedOutOfRange), failed.Outcome)
	assert.Nil(t, failed.Session)

	// Day 4: inside.
	ok, err := newService(f, at(4, 7, 40)).RecordAttempt(staff, north(20))
	require.NoError(t, err)
	require.True(t, ok.Verified)

	dispute, err := approvals.SubmitDispute(staff, approval.SubmitDisputeRequest{AttemptID: failed.AttemptID, Reason: "GPS drift by the school gate"})
	require.NoError(t, err)
	note := "Seen at morning assembly"
	_, err = approvals.Approve(principal, approval.DecisionRequest{ID: dispute.ID, Note: &note})
	require.NoError(t, err)

	_, err = payrolls.UpsertSalaryStructure(bursar, payroll.UpsertSalaryStructureRequest{
		EmployeeID:    ada.ID,
		BaseSalary:    310000,
		BankName:      "First Bank",
		AccountNumber: "0123456789",
		AccountName:   "ADA OBI",
	})
	require.NoError(t, err)

	run, err := payrolls.GenerateRun(bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)

	var adaItem payroll.ItemResponse
	for _, it := range run.Items {
		if it.EmployeeID == ada.ID {
			adaItem = it
		}
	}
	assert.Equal(t, 2, adaItem.DaysPresent)
	assert.Equal(t, 1, adaItem.OverrideDays)
	// 29 absent days at 100.00
	assert.Equal(t, money.Amount(20000), adaItem.NetPay)
	assert.Equal(t, adaItem.NetPay, run.TotalPayout)

	report, err := reports.GetReport(principal, run.ID)
	require.NoError(t, err)
	assert.False(t, report.ExportReady)
	assert.Equal(t, 1, report.FlaggedStaff)

	var adaLine reconciliation.StaffResponse
	for _, s := range report.Staff {
		if s.EmployeeID == ada.ID {
			adaLine = s
		}
	}
	assert.Equal(t, string(reconciliation.StatusReviewRequired), adaLine.Status)
	assert.Equal(t, 2, adaLine.AttemptCount)
	assert.Equal(t, 1, adaLine.FailedAttemptCount)
	require.Len(t, adaLine.Overrides, 1)
	override := adaLine.Overrides[0]
	assert.Equal(t, dispute.ID, override.DisputeID)
	assert.Equal(t, "2025-03-03", override.Date)
	require.NotNil(t, override.DistanceMeters)
	assert.InDelta(t, 650, *override.DistanceMeters, 1)
	require.NotNil(t, override.PrincipalNote)
	assert.Equal(t, note, *override.PrincipalNote)

	var out bytes.Buffer
	_, err = ledgers.Export(bursar, run.ID, ledger.FormatCSV, &out)
	assert.ErrorIs(t, err, payroll.ErrRunNotFinalized)

	_, err = payrolls.FinalizeRun(bursar, run.ID)
	require.NoError(t, err)

	// Day 5: a dispute still open anywhere in March holds the ledger back.
	late, err := newService(f, at(5, 7, 30)).RecordAttempt(staff, north(700))
	require.NoError(t, err)
	open, err := approvals.SubmitDispute(staff, approval.SubmitDisputeRequest{AttemptID: late.AttemptID, Reason: "Phone lost signal"})
	require.NoError(t, err)

	_, err = ledgers.GetReconciledLedger(principal, run.ID)
	assert.ErrorIs(t, err, ledger.ErrUnresolvedDisputes)
	report, err = reports.GetReport(principal, run.ID)
	require.NoError(t, err)
	assert.False(t, report.ExportReady)

	reason := "No signal issue reported that day"
	_, err = approvals.Reject(principal, approval.DecisionRequest{ID: open.ID, Note: &reason})
	require.NoError(t, err)

	report, err = reports.GetReport(principal, run.ID)
	require.NoError(t, err)
	assert.True(t, report.ExportReady)

	filename, err := ledgers.Export(bursar, run.ID, ledger.FormatCSV, &out)
	require.NoError(t, err)
	assert.Equal(t, "ledger_2025_03_"+run.ID+".csv", filename)

	rows, err := csv.NewReader(bytes.NewReader(out.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Account Name", "Bank Name", "Account Number", "Amount", "Narration"}, rows[0])
	assert.Contains(t, rows, []string{"ADA OBI", "First Bank", "0123456789", "200.00", "SALARY MARCH 2025"})

	// Staff cannot export.
	_, err = ledgers.Export(staff, run.ID, ledger.FormatCSV, &bytes.Buffer{})
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
}

// Approving a day after the month is finalized changes what the staff member is owed, so the
// finalized run goes stale and the ledger refuses to pay the old figures.
func TestPipeline_ApprovalAfterFinalizeBlocksLedger(t *testing.T) {
	f := testutil.NewFixture(t)
	local, err := storage.NewLocalStorage(t.TempDir(), "http://files")
	require.NoError(t, err)

	approvals := approvalservice.NewApprovalService(f.Tx, f.Approvals, f.Employees, f.Users, file.NewFileService(local, 0), f.Notifier,
		map[approval.Kind]approval.KindPolicy{
			approval.KindAttendanceDispute: NewDisputePolicy(f.Attempts, f.Sessions, f.Approvals, f.Companies, f.Defaults),
		})
	payrolls := payrollservice.NewPayrollService(f.Tx, f.Payroll, f.Employees, f.Sessions, f.Approvals, f.Notifier)
	reports := reconciliationservice.NewReconciliationService(f.Tx, f.Payroll, f.Approvals, f.Attempts, f.Sessions)
	ledgers := ledgerservice.NewLedgerService(f.Tx, f.Payroll, f.Approvals, f.Sessions)

	c := f.Company(t, schoolLat, schoolLng, 500)
	ada, adaUser := f.Member(t, c.ID, "Ada Obi", user.RoleStaff)
	_, principalUser := f.Member(t, c.ID, "Mrs Bello", user.RolePrincipal)
	bursarUser, err := f.Users.Create(context.Background(), user.User{CompanyID: c.ID, Email: "bursar@example.com", Role: user.RoleBursar})
	require.NoError(t, err)

	staff := f.As(t, adaUser)
	principal := f.As(t, principalUser)
	bursar := f.As(t, bursarUser)

	_, err = newService(f, at(4, 7, 40)).RecordAttempt(staff, north(20))
	require.NoError(t, err)
	_, err = payrolls.UpsertSalaryStructure(bursar, payroll.UpsertSalaryStructureRequest{
		EmployeeID:    ada.ID,
		BaseSalary:    310000,
		BankName:      "First Bank",
		AccountNumber: "0123456789",
		AccountName:   "ADA OBI",
	})
	require.NoError(t, err)

	run, err := payrolls.GenerateRun(bursar, payroll.GenerateRunRequest{Month: 3, Year: 2025})
	require.NoError(t, err)
	_, err = payrolls.FinalizeRun(bursar, run.ID)
	require.NoError(t, err)

	late, err := newService(f, at(5, 7, 30)).RecordAttempt(staff, north(700))
	require.NoError(t, err)
	open, err := approvals.SubmitDispute(staff, approval.SubmitDisputeRequest{AttemptID: late.AttemptID, Reason: "Phone lost signal"})
	require.NoError(t, err)
	note := "Covered the gate that morning"
	_, err = approvals.Approve(principal, approval.DecisionRequest{ID: open.ID, Note: &note})
	require.NoError(t, err)

	report, err := reports.GetReport(principal, run.ID)
	require.NoError(t, err)
	assert.False(t, report.ExportReady)
	assert.Equal(t, 1, report.StaleStaff)
	var adaLine reconciliation.StaffResponse
	for _, s := range report.Staff {
		if s.EmployeeID == ada.ID {
			adaLine = s
		}
	}
	assert.True(t, adaLine.Stale)
	assert.Equal(t, string(reconciliation.StatusStale), adaLine.Status)
	assert.Equal(t, 1, adaLine.LateApprovals)

	var out bytes.Buffer
	_, err = ledgers.Export(bursar, run.ID, ledger.FormatCSV, &out)
	assert.ErrorIs(t, err, ledger.ErrStaleRun)
	assert.Zero(t, out.Len())
	_, err = ledgers.GetReconciledLedger(principal, run.ID)
	assert.ErrorIs(t, err, ledger.ErrStaleRun)
}
