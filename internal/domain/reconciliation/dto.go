package reconciliation

import (
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
)

type OverrideResponse struct {
	DisputeID      string     `json:"dispute_id"`
	Date           string     `json:"date"`
	DistanceMeters *float64   `json:"distance_meters"`
	PrincipalNote  *string    `json:"principal_note"`
	DecidedBy      *string    `json:"decided_by"`
	DecidedAt      *time.Time `json:"decided_at"`
}

type StaffResponse struct {
	PayrollItemID      string             `json:"payroll_item_id"`
	EmployeeID         string             `json:"employee_id"`
	EmployeeName       string             `json:"employee_name"`
	NetPay             money.Amount       `json:"net_pay"`
	DaysPresent        int                `json:"days_present"`
	Flags              int                `json:"flags"`
	Overrides          []OverrideResponse `json:"overrides"`
	AttemptCount       int                `json:"attempt_count"`
	FailedAttemptCount int                `json:"failed_attempt_count"`
	PendingDisputes    int                `json:"pending_disputes"`
	LateApprovals      int                `json:"late_approvals"`
	Stale              bool               `json:"stale"`
	Status             string             `json:"status"`
}

type ReportResponse struct {
	RunID        string          `json:"run_id"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	RunStatus    string          `json:"run_status"`
	Staff        []StaffResponse `json:"staff"`
	FlaggedStaff int             `json:"flagged_staff"`
	StaleStaff   int             `json:"stale_staff"`
	TotalFlags   int             `json:"total_flags"`
	TotalPayout  money.Amount    `json:"total_payout"`
	ExportReady  bool            `json:"export_ready"`
}

func NewReportResponse(r Report) ReportResponse {
	resp := ReportResponse{
		RunID:        r.Run.ID,
		Month:        r.Run.Month,
		Year:         r.Run.Year,
		RunStatus:    string(r.Run.Status),
		Staff:        make([]StaffResponse, 0, len(r.Staff)),
		FlaggedStaff: r.FlaggedStaff,
		StaleStaff:   r.StaleStaff,
		TotalFlags:   r.TotalFlags,
		TotalPayout:  r.TotalPayout,
		ExportReady:  r.ExportReady,
	}
	for _, s := range r.Staff {
		overrides := make([]OverrideResponse, 0, len(s.Overrides))
		for _, o := range s.Overrides {
			overrides = append(overrides, OverrideResponse{
				DisputeID:      o.DisputeID,
				Date:           o.Date.Format("2006-01-02"),
				DistanceMeters: o.DistanceMeters,
				PrincipalNote:  o.PrincipalNote,
				DecidedBy:      o.DecidedBy,
				DecidedAt:      o.DecidedAt,
			})
		}
		resp.Staff = append(resp.Staff, StaffResponse{
			PayrollItemID:      s.PayrollItemID,
			EmployeeID:         s.EmployeeID,
			EmployeeName:       s.EmployeeName,
			NetPay:             s.NetPay,
			DaysPresent:        s.DaysPresent,
			Flags:              s.Flags,
			Overrides:          overrides,
			AttemptCount:       s.AttemptCount,
			FailedAttemptCount: s.FailedAttemptCount,
			PendingDisputes:    s.PendingDisputes,
			LateApprovals:      s.LateApprovals,
			Stale:              s.Stale,
			Status:             string(s.Status),
		})
	}
	return resp
}
