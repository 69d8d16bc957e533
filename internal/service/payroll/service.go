package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/metrics"
)

type PayrollServiceImpl struct {
	tx                  database.TxManager
	payrollRepo         payroll.PayrollRepository
	employeeRepo        employee.EmployeeRepository
	sessionRepo         attendance.SessionRepository
	approvalRepo        approval.ItemRepository
	notificationService notification.Service
	now                 func() time.Time
}

func NewPayrollService(
	tx database.TxManager,
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	sessionRepo attendance.SessionRepository,
	approvalRepo approval.ItemRepository,
	notificationService notification.Service,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		tx:                  tx,
		payrollRepo:         payrollRepo,
		employeeRepo:        employeeRepo,
		sessionRepo:         sessionRepo,
		approvalRepo:        approvalRepo,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

func authorize(ctx context.Context, permission user.Permission) (jwt.Identity, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return jwt.Identity{}, err
	}
	if !user.HasPermission(identity.Role, permission) {
		return jwt.Identity{}, user.ErrInsufficientPermissions
	}
	return identity, nil
}

// ========== SETTINGS ==========

func mapSettingsToResponse(settings payroll.Settings) payroll.SettingsResponse {
	resp := payroll.SettingsResponse{
		CompanyID:          settings.CompanyID,
		AbsentDayRate:      settings.AbsentDayRate,
		LatenessFine:       settings.LatenessFine,
		LatenessGraceCount: settings.LatenessGraceCount,
	}
	if !settings.UpdatedAt.IsZero() {
		updatedAt := settings.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

func (s *PayrollServiceImpl) GetSettings(ctx context.Context) (payroll.SettingsResponse, error) {
	identity, err := authorize(ctx, user.PermissionPayrollView)
	if err != nil {
		return payroll.SettingsResponse{}, err
	}

	settings, err := s.payrollRepo.GetSettings(ctx, identity.CompanyID)
	if err != nil {
		return payroll.SettingsResponse{}, fmt.Errorf("failed to get payroll settings: %w", err)
	}
	return mapSettingsToResponse(settings), nil
}

func (s *PayrollServiceImpl) UpdateSettings(ctx context.Context, req payroll.UpdateSettingsRequest) (payroll.SettingsResponse, error) {
	identity, err := authorize(ctx, user.PermissionPayrollManage)
	if err != nil {
		return payroll.SettingsResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.SettingsResponse{}, err
	}

	var saved payroll.Settings
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		settings, err := s.payrollRepo.GetSettings(ctx, identity.CompanyID)
		if err != nil {
			return err
		}
		settings.CompanyID = identity.CompanyID
		if req.AbsentDayRate != nil {
			settings.AbsentDayRate = *req.AbsentDayRate
		}
		if req.LatenessFine != nil {
			settings.LatenessFine = *req.LatenessFine
		}
		if req.LatenessGraceCount != nil {
			settings.LatenessGraceCount = *req.LatenessGraceCount
		}
		settings.UpdatedAt = s.now().UTC()

		saved, err = s.payrollRepo.UpsertSettings(ctx, settings)
		return err
	})
	if err != nil {
		return payroll.SettingsResponse{}, fmt.Errorf("failed to update payroll settings: %w", err)
	}
	return mapSettingsToResponse(saved), nil
}

// ========== SALARY STRUCTURES ==========

func (s *PayrollServiceImpl) UpsertSalaryStructure(ctx context.Context, req payroll.UpsertSalaryStructureRequest) (payroll.SalaryStructureResponse, error) {
	identity, err := authorize(ctx, user.PermissionPayrollManage)
	if err != nil {
		return payroll.SalaryStructureResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.SalaryStructureResponse{}, err
	}

	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, identity.CompanyID); err != nil {
		return payroll.SalaryStructureResponse{}, err
	}

	actor := identity.UserID
	saved, err := s.payrollRepo.UpsertSalaryStructure(ctx, payroll.SalaryStructure{
		CompanyID:          identity.CompanyID,
		EmployeeID:         req.EmployeeID,
		BaseSalary:         req.BaseSalary,
		HousingAllowance:   req.HousingAllowance,
		TransportAllowance: req.TransportAllowance,
		TaxDeduction:       req.TaxDeduction,
		PensionDeduction:   req.PensionDeduction,
		BankName:           req.BankName,
		AccountNumber:      req.AccountNumber,
		AccountName:        req.AccountName,
		UpdatedBy:          &actor,
		UpdatedAt:          s.now().UTC(),
	})
	if err != nil {
		return payroll.SalaryStructureResponse{}, fmt.Errorf("failed to save salary structure: %w", err)
	}
	return payroll.NewSalaryStructureResponse(saved), nil
}

func (s *PayrollServiceImpl) GetSalaryStructure(ctx context.Context, employeeID string) (payroll.SalaryStructureResponse, error) {
	identity, err := authorize(ctx, user.PermissionPayrollManage)
	if err != nil {
		return payroll.SalaryStructureResponse{}, err
	}

	structure, err := s.payrollRepo.GetSalaryStructure(ctx, employeeID, identity.CompanyID)
	if err != nil {
		return payroll.SalaryStructureResponse{}, err
	}
	return payroll.NewSalaryStructureResponse(structure), nil
}

func (s *PayrollServiceImpl) ListSalaryStructures(ctx context.Context) ([]payroll.SalaryStructureResponse, error) {
	identity, err := authorize(ctx, user.PermissionPayrollManage)
	if err != nil {
		return nil, err
	}

	structures, err := s.payrollRepo.ListSalaryStructures(ctx, identity.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary structures: %w", err)
	}

	responses := make([]payroll.SalaryStructureResponse, 0, len(structures))
	for _, st := range structures {
		responses = append(responses, payroll.NewSalaryStructureResponse(st))
	}
	return responses, nil
}

// ========== RUNS ==========

// GenerateRun claims the period by inserting the run first, so concurrent requests for the same
// month collide on the unique key. Everything else is read at one repeatable-read snapshot.
func (s *PayrollServiceImpl) GenerateRun(ctx context.Context, req payroll.GenerateRunRequest) (payroll.RunResponse, error) {
	identity, err := authorize(ctx, user.PermissionPayrollManage)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.RunResponse{}, err
	}

	period := req.Period()
	from, to := payroll.PeriodBounds(req.Month, req.Year)
	generatedBy := identity.UserID

	var run payroll.Run
	var items []payroll.Item
	err = s.tx.WithinSnapshot(ctx, func(ctx context.Context) error {
		var err error
		run, err = s.payrollRepo.CreateRun(ctx, payroll.Run{
			CompanyID:        identity.CompanyID,
			Month:            req.Month,
			Year:             req.Year,
			Status:           payroll.RunStatusDraft,
			DaysInMonth:      period.DaysInMonth,
			DailyRateDivisor: period.DailyRateDivisor,
			GeneratedBy:      &generatedBy,
			GeneratedAt:      s.now().UTC(),
		})
		if err != nil {
			return err
		}

		settings, err := s.payrollRepo.GetSettings(ctx, identity.CompanyID)
		if err != nil {
			return fmt.Errorf("failed to get payroll settings: %w", err)
		}
		structures, err := s.payrollRepo.ListSalaryStructures(ctx, identity.CompanyID)
		if err != nil {
			return fmt.Errorf("failed to list salary structures: %w", err)
		}
		employees, err := s.employeeRepo.GetActiveByCompanyID(ctx, identity.CompanyID)
		if err != nil {
			return fmt.Errorf("failed to list active employees: %w", err)
		}
		if len(employees) == 0 {
			return payroll.ErrNoActiveEmployees
		}
		presence, err := s.sessionRepo.SummarizePeriod(ctx, identity.CompanyID, from, to)
		if err != nil {
			return fmt.Errorf("failed to summarize attendance: %w", err)
		}

		byEmployee := make(map[string]payroll.SalaryStructure, len(structures))
		for _, st := range structures {
			byEmployee[st.EmployeeID] = st
		}

		items = make([]payroll.Item, 0, len(employees))
		for _, emp := range employees {
			var structure *payroll.SalaryStructure
			if st, ok := byEmployee[emp.ID]; ok {
				structure = &st
			}
			summary := presence[emp.ID]
			summary.EmployeeID = emp.ID

			item := payroll.ComputeItem(structure, summary, settings, period)
			item.RunID = run.ID
			item.CompanyID = identity.CompanyID
			item.EmployeeName = emp.FullName
			items = append(items, item)
		}

		if err := s.payrollRepo.CreateItems(ctx, items); err != nil {
			return fmt.Errorf("failed to save payroll items: %w", err)
		}

		run.TotalPayout = payroll.Total(items)
		run.ItemCount = len(items)
		return s.payrollRepo.UpdateRunTotals(ctx, run.ID, run.TotalPayout, run.ItemCount, identity.CompanyID)
	})
	if err != nil {
		if errors.Is(err, payroll.ErrDuplicateRun) {
			metrics.PayrollDuplicateRunsTotal.Inc()
			// The failed transaction is gone; read the winner on a fresh connection.
			existing, getErr := s.payrollRepo.GetRunByPeriod(ctx, req.Month, req.Year, identity.CompanyID)
			if getErr != nil {
				return payroll.RunResponse{}, err
			}
			return payroll.RunResponse{}, &payroll.DuplicateRunError{Existing: existing}
		}
		return payroll.RunResponse{}, err
	}

	metrics.PayrollRunsGeneratedTotal.Inc()
	logging.L(ctx).Info("payroll run generated",
		"run_id", run.ID, "month", run.Month, "year", run.Year,
		"items", run.ItemCount, "total_payout", run.TotalPayout.String())

	items, err = s.payrollRepo.ListItems(ctx, run.ID, identity.CompanyID)
	if err != nil {
		return payroll.RunResponse{}, fmt.Errorf("failed to list payroll items: %w", err)
	}
	return payroll.NewRunResponse(run, items), nil
}

func (s *PayrollServiceImpl) GetRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	identity, err := authorize(ctx, user.PermissionPayrollView)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	var run payroll.Run
	var items []payroll.Item
	err = s.tx.WithinSnapshot(ctx, func(ctx context.Context) error {
		var err error
		if run, err = s.payrollRepo.GetRunByID(ctx, id, identity.CompanyID); err != nil {
			return err
		}
		items, err = s.payrollRepo.ListItems(ctx, id, identity.CompanyID)
		return err
	})
	if err != nil {
		return payroll.RunResponse{}, err
	}
	return payroll.NewRunResponse(run, items), nil
}

func (s *PayrollServiceImpl) ListRuns(ctx context.Context, filter payroll.RunFilter) (payroll.ListRunResponse, error) {
	identity, err := authorize(ctx, user.PermissionPayrollView)
	if err != nil {
		return payroll.ListRunResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return payroll.ListRunResponse{}, err
	}

	runs, total, err := s.payrollRepo.ListRuns(ctx, identity.CompanyID, filter)
	if err != nil {
		return payroll.ListRunResponse{}, fmt.Errorf("failed to list payroll runs: %w", err)
	}

	responses := make([]payroll.RunResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, payroll.NewRunResponse(run, nil))
	}
	return payroll.ListRunResponse{
		Runs:       responses,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// FinalizeRun freezes a draft whose attendance is settled. Included employees are told afterwards.
func (s *PayrollServiceImpl) FinalizeRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	identity, err := authorize(ctx, user.PermissionPayrollManage)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	var run payroll.Run
	var items []payroll.Item
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		run, err = s.payrollRepo.GetRunByIDForUpdate(ctx, id, identity.CompanyID)
		if err != nil {
			return err
		}
		if run.Status != payroll.RunStatusDraft {
			return payroll.ErrRunNotDraft
		}

		items, err = s.payrollRepo.ListItems(ctx, id, identity.CompanyID)
		if err != nil {
			return err
		}
		if payroll.Total(items) != run.TotalPayout {
			return payroll.ErrTotalMismatch
		}
		if err := s.checkAttendanceSettled(ctx, run, items); err != nil {
			return err
		}

		finalizedBy := identity.UserID
		finalizedAt := s.now().UTC()
		run.Status = payroll.RunStatusFinalized
		run.FinalizedBy = &finalizedBy
		run.FinalizedAt = &finalizedAt
		return s.payrollRepo.FinalizeRun(ctx, run)
	})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.notifyFinalized(ctx, run, items)
	return payroll.NewRunResponse(run, items), nil
}

// checkAttendanceSettled refuses a run while a dispute of an included employee is pending,
// or when the period's sessions no longer match what the items were priced from.
func (s *PayrollServiceImpl) checkAttendanceSettled(ctx context.Context, run payroll.Run, items []payroll.Item) error {
	from, to := run.PeriodBounds()
	pending, err := s.approvalRepo.ListDisputesInPeriod(ctx, run.CompanyID, from, to, []approval.Status{approval.StatusPending})
	if err != nil {
		return fmt.Errorf("failed to list pending disputes: %w", err)
	}
	included := make(map[string]struct{}, len(items))
	for _, it := range items {
		included[it.EmployeeID] = struct{}{}
	}
	for _, d := range pending {
		if _, ok := included[d.EmployeeID]; ok {
			return payroll.ErrUnresolvedDisputes
		}
	}

	presence, err := s.sessionRepo.SummarizePeriod(ctx, run.CompanyID, from, to)
	if err != nil {
		return fmt.Errorf("failed to summarize attendance: %w", err)
	}
	for _, it := range items {
		current := presence[it.EmployeeID]
		current.EmployeeID = it.EmployeeID
		if !it.MatchesPresence(current) {
			return fmt.Errorf("%w: employee %s", payroll.ErrRunStale, it.EmployeeID)
		}
	}
	return nil
}

// DeleteRun discards a draft so the period can be generated again.
func (s *PayrollServiceImpl) DeleteRun(ctx context.Context, id string) error {
	identity, err := authorize(ctx, user.PermissionPayrollManage)
	if err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		run, err := s.payrollRepo.GetRunByIDForUpdate(ctx, id, identity.CompanyID)
		if err != nil {
			return err
		}
		if run.Status != payroll.RunStatusDraft {
			return payroll.ErrRunNotDraft
		}
		return s.payrollRepo.DeleteRun(ctx, id, identity.CompanyID)
	})
}

func (s *PayrollServiceImpl) notifyFinalized(ctx context.Context, run payroll.Run, items []payroll.Item) {
	monthName := time.Month(run.Month).String()
	reqs := make([]notification.CreateNotificationRequest, 0, len(items))
	for _, it := range items {
		emp, err := s.employeeRepo.GetByID(ctx, it.EmployeeID, run.CompanyID)
		if err != nil || emp.UserID == nil {
			continue
		}
		reqs = append(reqs, notification.CreateNotificationRequest{
			CompanyID:   run.CompanyID,
			RecipientID: *emp.UserID,
			SenderID:    run.FinalizedBy,
			Type:        notification.TypePayrollFinalized,
			Title:       fmt.Sprintf("Payroll for %s %d is final", monthName, run.Year),
			Message:     fmt.Sprintf("Your net pay for %s %d is %s.", monthName, run.Year, it.NetPay.String()),
			Data: map[string]interface{}{
				"run_id":  run.ID,
				"item_id": it.ID,
			},
		})
	}
	_ = s.notificationService.QueueBulkNotification(ctx, reqs)
}
