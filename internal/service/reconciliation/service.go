package reconciliation

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/reconciliation"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
)

type ReconciliationServiceImpl struct {
	tx           database.TxManager
	payrollRepo  payroll.PayrollRepository
	approvalRepo approval.ItemRepository
	attemptRepo  attendance.AttemptRepository
	sessionRepo  attendance.SessionRepository
}

func NewReconciliationService(
	tx database.TxManager,
	payrollRepo payroll.PayrollRepository,
	approvalRepo approval.ItemRepository,
	attemptRepo attendance.AttemptRepository,
	sessionRepo attendance.SessionRepository,
) reconciliation.ReconciliationService {
	return &ReconciliationServiceImpl{
		tx:           tx,
		payrollRepo:  payrollRepo,
		approvalRepo: approvalRepo,
		attemptRepo:  attemptRepo,
		sessionRepo:  sessionRepo,
	}
}

// GetReport reads the run and everything it is reconciled against at one snapshot.
func (s *ReconciliationServiceImpl) GetReport(ctx context.Context, runID string) (reconciliation.ReportResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return reconciliation.ReportResponse{}, err
	}
	if !user.HasPermission(identity.Role, user.PermissionPayrollView) {
		return reconciliation.ReportResponse{}, user.ErrInsufficientPermissions
	}

	var in reconciliation.Input
	err = s.tx.WithinSnapshot(ctx, func(ctx context.Context) error {
		run, err := s.payrollRepo.GetRunByID(ctx, runID, identity.CompanyID)
		if err != nil {
			return err
		}
		items, err := s.payrollRepo.ListItems(ctx, run.ID, identity.CompanyID)
		if err != nil {
			return fmt.Errorf("failed to list payroll items: %w", err)
		}

		from, to := run.PeriodBounds()
		disputes, err := s.approvalRepo.ListDisputesInPeriod(ctx, identity.CompanyID, from, to,
			[]approval.Status{approval.StatusApproved, approval.StatusPending})
		if err != nil {
			return fmt.Errorf("failed to list disputes: %w", err)
		}
		attempts, err := s.attemptRepo.CountByEmployee(ctx, identity.CompanyID, from, to)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}

		presence, err := s.sessionRepo.SummarizePeriod(ctx, identity.CompanyID, from, to)
		if err != nil {
			return fmt.Errorf("failed to summarize attendance: %w", err)
		}

		in = reconciliation.Input{Run: run, Items: items, Disputes: disputes, Attempts: attempts, Presence: presence}
		return nil
	})
	if err != nil {
		return reconciliation.ReportResponse{}, err
	}

	return reconciliation.NewReportResponse(reconciliation.Build(in)), nil
}
