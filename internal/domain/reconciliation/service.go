package reconciliation

import "context"

type ReconciliationService interface {
	GetReport(ctx context.Context, runID string) (ReportResponse, error)
}
