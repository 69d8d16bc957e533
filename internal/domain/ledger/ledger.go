// Package ledger turns a finalized payroll run into the bank payout file.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
)

const StatusReconciled = "RECONCILED"

type Entry struct {
	PayrollItemID string
	EmployeeID    string
	BankName      string
	AccountNumber string
	AccountName   string
	Amount        money.Amount
	Narration     string
	Status        string
}

type Ledger struct {
	RunID   string
	Month   int
	Year    int
	Entries []Entry
	Total   money.Amount
}

// Narration returns the transfer reference, e.g. "SALARY MARCH 2025".
func Narration(month, year int) string {
	return fmt.Sprintf("SALARY %s %d", strings.ToUpper(time.Month(month).String()), year)
}

// Build maps run items to entries using the current bank details. structures is keyed
// by employee ID. A run whose items do not add up to its total is rejected.
func Build(run payroll.Run, items []payroll.Item, structures map[string]payroll.SalaryStructure) (Ledger, error) {
	if run.Status != payroll.RunStatusFinalized {
		return Ledger{}, payroll.ErrRunNotFinalized
	}

	narration := Narration(run.Month, run.Year)
	l := Ledger{RunID: run.ID, Month: run.Month, Year: run.Year, Entries: make([]Entry, 0, len(items))}
	for _, it := range items {
		s, ok := structures[it.EmployeeID]
		if !ok && it.NetPay > 0 {
			return Ledger{}, fmt.Errorf("%w: employee %s", ErrMissingBankDetails, it.EmployeeID)
		}
		l.Entries = append(l.Entries, Entry{
			PayrollItemID: it.ID,
			EmployeeID:    it.EmployeeID,
			BankName:      s.BankName,
			AccountNumber: s.AccountNumber,
			AccountName:   s.AccountName,
			Amount:        it.NetPay,
			Narration:     narration,
			Status:        StatusReconciled,
		})
		l.Total += it.NetPay
	}

	sort.SliceStable(l.Entries, func(i, j int) bool {
		a, b := l.Entries[i], l.Entries[j]
		if a.AccountName != b.AccountName {
			return a.AccountName < b.AccountName
		}
		return a.PayrollItemID < b.PayrollItemID
	})

	if l.Total != run.TotalPayout {
		return Ledger{}, fmt.Errorf("%w: entries %s, run %s", payroll.ErrTotalMismatch, l.Total, run.TotalPayout)
	}
	return l, nil
}
