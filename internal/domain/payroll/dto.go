package payroll

import (
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
)

// ========== SETTINGS DTOs ==========

type SettingsResponse struct {
	CompanyID          string       `json:"company_id"`
	AbsentDayRate      money.Amount `json:"absent_day_rate"`
	LatenessFine       money.Amount `json:"lateness_fine"`
	LatenessGraceCount int          `json:"lateness_grace_count"`
	UpdatedAt          *time.Time   `json:"updated_at,omitempty"`
}

type UpdateSettingsRequest struct {
	AbsentDayRate      *money.Amount `json:"absent_day_rate,omitempty"`
	LatenessFine       *money.Amount `json:"lateness_fine,omitempty"`
	LatenessGraceCount *int          `json:"lateness_grace_count,omitempty" validate:"omitempty,gte=0,lte=31"`
}

func (r *UpdateSettingsRequest) Validate() error {
	errs := validator.Struct(r)
	if r.AbsentDayRate != nil && r.AbsentDayRate.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "absent_day_rate", Message: "must be non-negative"})
	}
	if r.LatenessFine != nil && r.LatenessFine.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "lateness_fine", Message: "must be non-negative"})
	}
	return errs.OrNil()
}

// ========== SALARY STRUCTURE DTOs ==========

type UpsertSalaryStructureRequest struct {
	EmployeeID         string       `json:"-"`
	BaseSalary         money.Amount `json:"base_salary"`
	HousingAllowance   money.Amount `json:"housing_allowance"`
	TransportAllowance money.Amount `json:"transport_allowance"`
	TaxDeduction       money.Amount `json:"tax_deduction"`
	PensionDeduction   money.Amount `json:"pension_deduction"`
	BankName           string       `json:"bank_name" validate:"required,max=100"`
	AccountNumber      string       `json:"account_number" validate:"required,numeric,min=6,max=20"`
	AccountName        string       `json:"account_name" validate:"required,max=255"`
}

func (r *UpsertSalaryStructureRequest) Validate() error {
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "must be a valid UUID"})
	}
	amounts := []struct {
		field string
		value money.Amount
	}{
		{"base_salary", r.BaseSalary},
		{"housing_allowance", r.HousingAllowance},
		{"transport_allowance", r.TransportAllowance},
		{"tax_deduction", r.TaxDeduction},
		{"pension_deduction", r.PensionDeduction},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: a.field, Message: "must be non-negative"})
		}
	}
	return errs.OrNil()
}

type SalaryStructureResponse struct {
	EmployeeID         string       `json:"employee_id"`
	EmployeeName       *string      `json:"employee_name,omitempty"`
	BaseSalary         money.Amount `json:"base_salary"`
	HousingAllowance   money.Amount `json:"housing_allowance"`
	TransportAllowance money.Amount `json:"transport_allowance"`
	TaxDeduction       money.Amount `json:"tax_deduction"`
	PensionDeduction   money.Amount `json:"pension_deduction"`
	BankName           string       `json:"bank_name"`
	AccountNumber      string       `json:"account_number"`
	AccountName        string       `json:"account_name"`
	UpdatedBy          *string      `json:"updated_by,omitempty"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// ========== RUN DTOs ==========

type GenerateRunRequest struct {
	Month int `json:"month" validate:"required,gte=1,lte=12"`
	Year  int `json:"year" validate:"required,gte=2020,lte=2100"`
	// Optional overrides; both default to the calendar length of the month.
	DaysInMonth      *int `json:"days_in_month,omitempty" validate:"omitempty,gte=1,lte=31"`
	DailyRateDivisor *int `json:"daily_rate_divisor,omitempty" validate:"omitempty,gte=1,lte=31"`
}

func (r *GenerateRunRequest) Validate() error {
	return validator.Struct(r).OrNil()
}

// Period resolves the optional overrides against the calendar.
func (r *GenerateRunRequest) Period() Period {
	p := Period{DaysInMonth: CalendarDays(r.Month, r.Year)}
	if r.DaysInMonth != nil {
		p.DaysInMonth = *r.DaysInMonth
	}
	p.DailyRateDivisor = p.DaysInMonth
	if r.DailyRateDivisor != nil {
		p.DailyRateDivisor = *r.DailyRateDivisor
	}
	return p
}

type RunFilter struct {
	Year   *int
	Status *string
	Page   int
	Limit  int
}

func (f *RunFilter) Validate() error {
	var errs validator.ValidationErrors
	if f.Status != nil && *f.Status != string(RunStatusDraft) && *f.Status != string(RunStatusFinalized) {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "must be DRAFT or FINALIZED"})
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return errs.OrNil()
}

type ItemResponse struct {
	ID                   string       `json:"id"`
	EmployeeID           string       `json:"employee_id"`
	EmployeeName         string       `json:"employee_name"`
	BaseSalary           money.Amount `json:"base_salary"`
	HousingAllowance     money.Amount `json:"housing_allowance"`
	TransportAllowance   money.Amount `json:"transport_allowance"`
	GrossPay             money.Amount `json:"gross_pay"`
	DaysPresent          int          `json:"days_present"`
	OverrideDays         int          `json:"override_days"`
	LatenessCount        int          `json:"lateness_count"`
	AbsentDays           int          `json:"absent_days"`
	PerDayRate           money.Amount `json:"per_day_rate"`
	AttendanceDeductions money.Amount `json:"attendance_deductions"`
	TaxDeduction         money.Amount `json:"tax_deduction"`
	PensionDeduction     money.Amount `json:"pension_deduction"`
	NetPay               money.Amount `json:"net_pay"`
	Flags                []string     `json:"flags"`
}

type RunResponse struct {
	ID               string         `json:"id"`
	Month            int            `json:"month"`
	Year             int            `json:"year"`
	Status           string         `json:"status"`
	DaysInMonth      int            `json:"days_in_month"`
	DailyRateDivisor int            `json:"daily_rate_divisor"`
	TotalPayout      money.Amount   `json:"total_payout"`
	ItemCount        int            `json:"item_count"`
	GeneratedBy      *string        `json:"generated_by,omitempty"`
	GeneratedAt      time.Time      `json:"generated_at"`
	FinalizedBy      *string        `json:"finalized_by,omitempty"`
	FinalizedAt      *time.Time     `json:"finalized_at,omitempty"`
	Items            []ItemResponse `json:"items,omitempty"`
}

type ListRunResponse struct {
	Runs       []RunResponse `json:"runs"`
	TotalCount int64         `json:"total_count"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
}

func NewRunResponse(run Run, items []Item) RunResponse {
	resp := RunResponse{
		ID:               run.ID,
		Month:            run.Month,
		Year:             run.Year,
		Status:           string(run.Status),
		DaysInMonth:      run.DaysInMonth,
		DailyRateDivisor: run.DailyRateDivisor,
		TotalPayout:      run.TotalPayout,
		ItemCount:        run.ItemCount,
		GeneratedBy:      run.GeneratedBy,
		GeneratedAt:      run.GeneratedAt,
		FinalizedBy:      run.FinalizedBy,
		FinalizedAt:      run.FinalizedAt,
	}
	for _, it := range items {
		flags := make([]string, 0, len(it.Flags))
		for _, f := range it.Flags {
			flags = append(flags, string(f))
		}
		resp.Items = append(resp.Items, ItemResponse{
			ID:                   it.ID,
			EmployeeID:           it.EmployeeID,
			EmployeeName:         it.EmployeeName,
			BaseSalary:           it.BaseSalary,
			HousingAllowance:     it.HousingAllowance,
			TransportAllowance:   it.TransportAllowance,
			GrossPay:             it.GrossPay,
			DaysPresent:          it.DaysPresent,
			OverrideDays:         it.OverrideDays,
			LatenessCount:        it.LatenessCount,
			AbsentDays:           it.AbsentDays,
			PerDayRate:           it.PerDayRate,
			AttendanceDeductions: it.AttendanceDeductions,
			TaxDeduction:         it.TaxDeduction,
			PensionDeduction:     it.PensionDeduction,
			NetPay:               it.NetPay,
			Flags:                flags,
		})
	}
	return resp
}

func NewSalaryStructureResponse(s SalaryStructure) SalaryStructureResponse {
	return SalaryStructureResponse{
		EmployeeID:         s.EmployeeID,
		EmployeeName:       s.EmployeeName,
		BaseSalary:         s.BaseSalary,
		HousingAllowance:   s.HousingAllowance,
		TransportAllowance: s.TransportAllowance,
		TaxDeduction:       s.TaxDeduction,
		PensionDeduction:   s.PensionDeduction,
		BankName:           s.BankName,
		AccountNumber:      s.AccountNumber,
		AccountName:        s.AccountName,
		UpdatedBy:          s.UpdatedBy,
		UpdatedAt:          s.UpdatedAt,
	}
}
