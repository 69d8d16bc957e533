package payroll

import "context"

type PayrollService interface {
	// Settings
	GetSettings(ctx context.Context) (SettingsResponse, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (SettingsResponse, error)

	// Salary structures
	UpsertSalaryStructure(ctx context.Context, req UpsertSalaryStructureRequest) (SalaryStructureResponse, error)
	GetSalaryStructure(ctx context.Context, employeeID string) (SalaryStructureResponse, error)
	ListSalaryStructures(ctx context.Context) ([]SalaryStructureResponse, error)

	// Runs
	GenerateRun(ctx context.Context, req GenerateRunRequest) (RunResponse, error)
	GetRun(ctx context.Context, id string) (RunResponse, error)
	ListRuns(ctx context.Context, filter RunFilter) (ListRunResponse, error)
	FinalizeRun(ctx context.Context, id string) (RunResponse, error)
	DeleteRun(ctx context.Context, id string) error
}
