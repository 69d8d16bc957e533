package payroll

import (
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
)

// Settings - Company payroll configuration
type Settings struct {
	CompanyID string
	// AbsentDayRate is a fixed deduction per absent day. Zero means derive it from base salary.
	AbsentDayRate money.Amount
	// LatenessFine is charged per late session beyond LatenessGraceCount.
	LatenessFine       money.Amount
	LatenessGraceCount int
	UpdatedAt          time.Time
}

// SalaryStructure - Owned by the bursar. Versionless; the latest write wins.
type SalaryStructure struct {
	CompanyID          string
	EmployeeID         string
	BaseSalary         money.Amount
	HousingAllowance   money.Amount
	TransportAllowance money.Amount
	TaxDeduction       money.Amount
	PensionDeduction   money.Amount
	BankName           string
	AccountNumber      string // kept as text, leading zeros matter
	AccountName        string
	UpdatedBy          *string
	UpdatedAt          time.Time

	// DTO / Join
	EmployeeName *string
}

type RunStatus string

const (
	RunStatusDraft     RunStatus = "DRAFT"
	RunStatusFinalized RunStatus = "FINALIZED"
)

// Run - one payroll computation per company and month
type Run struct {
	ID               string
	CompanyID        string
	Month            int
	Year             int
	Status           RunStatus
	DaysInMonth      int
	DailyRateDivisor int
	TotalPayout      money.Amount
	ItemCount        int
	GeneratedBy      *string
	GeneratedAt      time.Time
	FinalizedBy      *string
	FinalizedAt      *time.Time
}

// PeriodBounds returns the first and last calendar day of the run month at UTC midnight.
func (r Run) PeriodBounds() (from, to time.Time) {
	return PeriodBounds(r.Month, r.Year)
}

func PeriodBounds(month, year int) (from, to time.Time) {
	from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to = from.AddDate(0, 1, -1)
	return from, to
}

// CalendarDays returns the number of days in the month.
func CalendarDays(month, year int) int {
	_, to := PeriodBounds(month, year)
	return to.Day()
}

type Flag string

const (
	FlagMissingStructure Flag = "MISSING_STRUCTURE"
	FlagNeedsReview      Flag = "NEEDS_REVIEW"
)

// Item - one employee's computed pay inside a run
type Item struct {
	ID                   string
	RunID                string
	CompanyID            string
	EmployeeID           string
	EmployeeName         string
	BaseSalary           money.Amount
	HousingAllowance     money.Amount
	TransportAllowance   money.Amount
	GrossPay             money.Amount
	DaysPresent          int
	OverrideDays         int
	LatenessCount        int
	AbsentDays           int
	PerDayRate           money.Amount
	AttendanceDeductions money.Amount
	TaxDeduction         money.Amount
	PensionDeduction     money.Amount
	NetPay               money.Amount
	Flags                []Flag
	CreatedAt            time.Time
}

// MatchesPresence reports whether the item was priced from the given attendance.
// A dispute approved after generation shows up here as a mismatch.
func (i Item) MatchesPresence(current attendance.PresenceSummary) bool {
	return i.DaysPresent == current.DaysPresent &&
		i.OverrideDays == current.OverrideDays &&
		i.LatenessCount == current.LatenessCount
}

func (i Item) HasFlag(f Flag) bool {
	for _, v := range i.Flags {
		if v == f {
			return true
		}
	}
	return false
}
