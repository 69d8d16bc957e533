package payroll

import (
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
)

// Period is the fixed input of one generation.
type Period struct {
	DaysInMonth      int
	DailyRateDivisor int
}

// ComputeItem prices one employee for a period. structure is nil when the employee has no
// salary structure; the item is still produced, with zero base and a MISSING_STRUCTURE flag.
func ComputeItem(structure *SalaryStructure, presence attendance.PresenceSummary, settings Settings, period Period) Item {
	item := Item{
		EmployeeID:    presence.EmployeeID,
		DaysPresent:   presence.DaysPresent,
		OverrideDays:  presence.OverrideDays,
		LatenessCount: presence.LatenessCount,
	}

	if structure == nil {
		item.Flags = append(item.Flags, FlagMissingStructure)
	} else {
		item.BaseSalary = structure.BaseSalary
		item.HousingAllowance = structure.HousingAllowance
		item.TransportAllowance = structure.TransportAllowance
		item.TaxDeduction = structure.TaxDeduction
		item.PensionDeduction = structure.PensionDeduction
	}

	item.AbsentDays = period.DaysInMonth - presence.DaysPresent
	if item.AbsentDays < 0 {
		item.AbsentDays = 0
	}

	item.PerDayRate = settings.AbsentDayRate
	if item.PerDayRate == 0 {
		item.PerDayRate = item.BaseSalary.DivRound(period.DailyRateDivisor)
	}

	finedLateness := presence.LatenessCount - settings.LatenessGraceCount
	if finedLateness < 0 {
		finedLateness = 0
	}

	item.AttendanceDeductions = item.PerDayRate.Mul(item.AbsentDays) + settings.LatenessFine.Mul(finedLateness)
	item.GrossPay = money.Sum(item.BaseSalary, item.HousingAllowance, item.TransportAllowance)

	net := item.GrossPay - item.AttendanceDeductions - item.TaxDeduction - item.PensionDeduction
	if net.IsNegative() {
		net = 0
		item.Flags = append(item.Flags, FlagNeedsReview)
	}
	item.NetPay = net

	return item
}

// Total sums net pay in minor units.
func Total(items []Item) money.Amount {
	var total money.Amount
	for _, it := range items {
		total += it.NetPay
	}
	return total
}
