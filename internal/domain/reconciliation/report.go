// Package reconciliation builds the principal-facing audit of a payroll run: which staff were
// paid on a dispute override and who signed it off.
package reconciliation

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
)

type Status string

const (
	StatusProtocolVerified Status = "PROTOCOL_VERIFIED"
	StatusReviewRequired   Status = "REVIEW_REQUIRED"
	// StatusStale marks a line whose attendance changed after the run was generated.
	StatusStale Status = "STALE"
)

// OverrideDetail is one approved dispute that counted toward pay.
type OverrideDetail struct {
	DisputeID      string
	Date           time.Time
	DistanceMeters *float64
	PrincipalNote  *string // verbatim decision note
	DecidedBy      *string
	DecidedAt      *time.Time
}

type StaffReconciliation struct {
	PayrollItemID      string
	EmployeeID         string
	EmployeeName       string
	NetPay             money.Amount
	DaysPresent        int
	Flags              int
	Overrides          []OverrideDetail
	AttemptCount       int
	FailedAttemptCount int
	PendingDisputes    int
	// LateApprovals counts overrides decided after the run was generated.
	LateApprovals int
	Stale         bool
	Status        Status
}

type Report struct {
	Run          payroll.Run
	Staff        []StaffReconciliation
	FlaggedStaff int
	StaleStaff   int
	TotalFlags   int
	TotalPayout  money.Amount
	ExportReady  bool
}

// Input is everything a report needs, read at one snapshot.
type Input struct {
	Run      payroll.Run
	Items    []payroll.Item
	Disputes []approval.Item // attendance disputes whose subject date is in the run period
	Attempts map[string]attendance.AttemptCounts
	// Presence is the period's attendance as it stands now. Nil skips the staleness check.
	Presence map[string]attendance.PresenceSummary
}

// Build is pure: the same input yields the same report.
func Build(in Input) Report {
	approved := make(map[string][]OverrideDetail)
	pending := make(map[string]int)
	for _, d := range in.Disputes {
		if d.Kind != approval.KindAttendanceDispute {
			continue
		}
		switch d.Status {
		case approval.StatusApproved:
			detail := OverrideDetail{
				DisputeID:      d.ID,
				DistanceMeters: d.DistanceDetected,
				PrincipalNote:  d.DecisionNote,
				DecidedBy:      d.DecidedBy,
				DecidedAt:      d.DecidedAt,
			}
			if d.SubjectDate != nil {
				detail.Date = *d.SubjectDate
			}
			approved[d.EmployeeID] = append(approved[d.EmployeeID], detail)
		case approval.StatusPending:
			pending[d.EmployeeID]++
		}
	}

	report := Report{Run: in.Run, Staff: make([]StaffReconciliation, 0, len(in.Items))}
	totalPending := 0
	for _, it := range in.Items {
		overrides := approved[it.EmployeeID]
		sortOverrides(overrides)

		staff := StaffReconciliation{
			PayrollItemID:      it.ID,
			EmployeeID:         it.EmployeeID,
			EmployeeName:       it.EmployeeName,
			NetPay:             it.NetPay,
			DaysPresent:        it.DaysPresent,
			Flags:              len(overrides),
			Overrides:          overrides,
			AttemptCount:       in.Attempts[it.EmployeeID].Total,
			FailedAttemptCount: in.Attempts[it.EmployeeID].Failed,
			PendingDisputes:    pending[it.EmployeeID],
			LateApprovals:      decidedAfter(overrides, in.Run.GeneratedAt),
			Status:             StatusProtocolVerified,
		}
		if in.Presence != nil {
			current := in.Presence[it.EmployeeID]
			current.EmployeeID = it.EmployeeID
			staff.Stale = !it.MatchesPresence(current)
		}
		if staff.Flags > 0 {
			staff.Status = StatusReviewRequired
			report.FlaggedStaff++
			report.TotalFlags += staff.Flags
		}
		if staff.Stale {
			staff.Status = StatusStale
			report.StaleStaff++
		}
		totalPending += staff.PendingDisputes
		report.TotalPayout += it.NetPay
		report.Staff = append(report.Staff, staff)
	}

	report.ExportReady = in.Run.Status == payroll.RunStatusFinalized && totalPending == 0 && report.StaleStaff == 0
	return report
}

func decidedAfter(overrides []OverrideDetail, t time.Time) int {
	n := 0
	for _, o := range overrides {
		if o.DecidedAt != nil && o.DecidedAt.After(t) {
			n++
		}
	}
	return n
}

func sortOverrides(o []OverrideDetail) {
	sort.Slice(o, func(i, j int) bool {
		if !o[i].Date.Equal(o[j].Date) {
			return o[i].Date.Before(o[j].Date)
		}
		return o[i].DisputeID < o[j].DisputeID
	})
}
