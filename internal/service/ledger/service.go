package ledger

import (
	"context"
	"fmt"
	"io"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/ledger"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/metrics"
)

type LedgerServiceImpl struct {
	tx           database.TxManager
	payrollRepo  payroll.PayrollRepository
	approvalRepo approval.ItemRepository
	sessionRepo  attendance.SessionRepository
}

func NewLedgerService(
	tx database.TxManager,
	payrollRepo payroll.PayrollRepository,
	approvalRepo approval.ItemRepository,
	sessionRepo attendance.SessionRepository,
) ledger.LedgerService {
	return &LedgerServiceImpl{
		tx:           tx,
		payrollRepo:  payrollRepo,
		approvalRepo: approvalRepo,
		sessionRepo:  sessionRepo,
	}
}

// build assembles the ledger of a finalized run. A pending dispute of any included employee
// blocks it, because its outcome could still change that employee's presence. So does an
// item whose attendance has changed since generation, such as a dispute approved afterwards.
func (s *LedgerServiceImpl) build(ctx context.Context, companyID, runID string) (ledger.Ledger, error) {
	var l ledger.Ledger
	err := s.tx.WithinSnapshot(ctx, func(ctx context.Context) error {
		run, err := s.payrollRepo.GetRunByID(ctx, runID, companyID)
		if err != nil {
			return err
		}
		if run.Status != payroll.RunStatusFinalized {
			return payroll.ErrRunNotFinalized
		}

		items, err := s.payrollRepo.ListItems(ctx, run.ID, companyID)
		if err != nil {
			return fmt.Errorf("failed to list payroll items: %w", err)
		}

		from, to := run.PeriodBounds()
		pending, err := s.approvalRepo.ListDisputesInPeriod(ctx, companyID, from, to, []approval.Status{approval.StatusPending})
		if err != nil {
			return fmt.Errorf("failed to list pending disputes: %w", err)
		}
		included := make(map[string]struct{}, len(items))
		for _, it := range items {
			included[it.EmployeeID] = struct{}{}
		}
		for _, d := range pending {
			if _, ok := included[d.EmployeeID]; ok {
				return ledger.ErrUnresolvedDisputes
			}
		}

		presence, err := s.sessionRepo.SummarizePeriod(ctx, companyID, from, to)
		if err != nil {
			return fmt.Errorf("failed to summarize attendance: %w", err)
		}
		for _, it := range items {
			current := presence[it.EmployeeID]
			current.EmployeeID = it.EmployeeID
			if !it.MatchesPresence(current) {
				return fmt.Errorf("%w: employee %s", ledger.ErrStaleRun, it.EmployeeID)
			}
		}

		structures, err := s.payrollRepo.ListSalaryStructures(ctx, companyID)
		if err != nil {
			return fmt.Errorf("failed to list salary structures: %w", err)
		}
		byEmployee := make(map[string]payroll.SalaryStructure, len(structures))
		for _, st := range structures {
			byEmployee[st.EmployeeID] = st
		}

		l, err = ledger.Build(run, items, byEmployee)
		return err
	})
	return l, err
}

// GetReconciledLedger implements ledger.LedgerService.
func (s *LedgerServiceImpl) GetReconciledLedger(ctx context.Context, runID string) (ledger.LedgerResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return ledger.LedgerResponse{}, err
	}
	if !user.HasPermission(identity.Role, user.PermissionPayrollView) {
		return ledger.LedgerResponse{}, user.ErrInsufficientPermissions
	}

	l, err := s.build(ctx, identity.CompanyID, runID)
	if err != nil {
		return ledger.LedgerResponse{}, err
	}
	return ledger.NewLedgerResponse(l), nil
}

// Export implements ledger.LedgerService.
func (s *LedgerServiceImpl) Export(ctx context.Context, runID string, format ledger.Format, w io.Writer) (string, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return "", err
	}
	if !user.HasPermission(identity.Role, user.PermissionPayrollManage) {
		return "", user.ErrInsufficientPermissions
	}

	l, err := s.build(ctx, identity.CompanyID, runID)
	if err != nil {
		return "", err
	}
	if err := l.Write(w, format); err != nil {
		return "", err
	}

	metrics.LedgerExportsTotal.WithLabelValues(string(format)).Inc()
	logging.L(ctx).Info("ledger exported", "run_id", runID, "format", string(format),
		"entries", len(l.Entries), "total", l.Total.String())
	return l.Filename(format), nil
}
