package payroll

import (
	"context"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
)

// PayrollRepository defines data access methods for payroll.
// All methods include companyID parameter to prevent cross-company data access attacks.
type PayrollRepository interface {
	// Settings
	GetSettings(ctx context.Context, companyID string) (Settings, error)
	UpsertSettings(ctx context.Context, settings Settings) (Settings, error)

	// Salary structures
	UpsertSalaryStructure(ctx context.Context, s SalaryStructure) (SalaryStructure, error)
	GetSalaryStructure(ctx context.Context, employeeID string, companyID string) (SalaryStructure, error)
	ListSalaryStructures(ctx context.Context, companyID string) ([]SalaryStructure, error)

	// Runs
	// CreateRun returns ErrDuplicateRun when the period is already taken.
	CreateRun(ctx context.Context, run Run) (Run, error)
	GetRunByID(ctx context.Context, id string, companyID string) (Run, error)
	GetRunByIDForUpdate(ctx context.Context, id string, companyID string) (Run, error)
	GetRunByPeriod(ctx context.Context, month, year int, companyID string) (Run, error)
	ListRuns(ctx context.Context, companyID string, filter RunFilter) ([]Run, int64, error)
	UpdateRunTotals(ctx context.Context, id string, total money.Amount, itemCount int, companyID string) error
	FinalizeRun(ctx context.Context, run Run) error
	DeleteRun(ctx context.Context, id string, companyID string) error

	// Items
	CreateItems(ctx context.Context, items []Item) error
	ListItems(ctx context.Context, runID string, companyID string) ([]Item, error)
}
