package ledger

import "github.com/cmlabs-hris/presence-payroll/internal/pkg/money"

type EntryResponse struct {
	PayrollItemID string       `json:"payroll_item_id"`
	EmployeeID    string       `json:"employee_id"`
	AccountName   string       `json:"account_name"`
	BankName      string       `json:"bank_name"`
	AccountNumber string       `json:"account_number"`
	Amount        money.Amount `json:"amount"`
	Narration     string       `json:"narration"`
	Status        string       `json:"status"`
}

type LedgerResponse struct {
	RunID   string          `json:"run_id"`
	Month   int             `json:"month"`
	Year    int             `json:"year"`
	Total   money.Amount    `json:"total"`
	Entries []EntryResponse `json:"entries"`
}

func NewLedgerResponse(l Ledger) LedgerResponse {
	resp := LedgerResponse{RunID: l.RunID, Month: l.Month, Year: l.Year, Total: l.Total, Entries: make([]EntryResponse, 0, len(l.Entries))}
	for _, e := range l.Entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			PayrollItemID: e.PayrollItemID,
			EmployeeID:    e.EmployeeID,
			AccountName:   e.AccountName,
			BankName:      e.BankName,
			AccountNumber: e.AccountNumber,
			Amount:        e.Amount,
			Narration:     e.Narration,
			Status:        e.Status,
		})
	}
	return resp
}
