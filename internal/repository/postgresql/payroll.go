package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== SETTINGS ==========

// GetSettings returns zero settings for a company that never saved any.
func (r *payrollRepository) GetSettings(ctx context.Context, companyID string) (payroll.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id, absent_day_rate, lateness_fine, lateness_grace_count, updated_at
		FROM payroll_settings
		WHERE company_id = $1
	`

	var s payroll.Settings
	err := q.QueryRow(ctx, query, companyID).Scan(
		&s.CompanyID, &s.AbsentDayRate, &s.LatenessFine, &s.LatenessGraceCount, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Settings{CompanyID: companyID}, nil
		}
		return payroll.Settings{}, fmt.Errorf("failed to get payroll settings: %w", err)
	}
	return s, nil
}

func (r *payrollRepository) UpsertSettings(ctx context.Context, settings payroll.Settings) (payroll.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_settings (company_id, absent_day_rate, lateness_fine, lateness_grace_count, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (company_id) DO UPDATE SET
			absent_day_rate = EXCLUDED.absent_day_rate,
			lateness_fine = EXCLUDED.lateness_fine,
			lateness_grace_count = EXCLUDED.lateness_grace_count,
			updated_at = NOW()
		RETURNING company_id, absent_day_rate, lateness_fine, lateness_grace_count, updated_at
	`

	var s payroll.Settings
	err := q.QueryRow(ctx, query,
		settings.CompanyID, settings.AbsentDayRate, settings.LatenessFine, settings.LatenessGraceCount,
	).Scan(&s.CompanyID, &s.AbsentDayRate, &s.LatenessFine, &s.LatenessGraceCount, &s.UpdatedAt)
	if err != nil {
		return payroll.Settings{}, fmt.Errorf("failed to upsert payroll settings: %w", err)
	}
	return s, nil
}

// ========== SALARY STRUCTURES ==========

const structureSelect = `
	SELECT s.company_id, s.employee_id, s.base_salary, s.housing_allowance, s.transport_allowance,
		   s.tax_deduction, s.pension_deduction, s.bank_name, s.account_number, s.account_name,
		   s.updated_by, s.updated_at, e.full_name
	FROM salary_structures s
	JOIN employees e ON e.id = s.employee_id
`

func scanStructure(row pgx.Row) (payroll.SalaryStructure, error) {
	var s payroll.SalaryStructure
	err := row.Scan(
		&s.CompanyID,
		&s.EmployeeID,
		&s.BaseSalary,
		&s.HousingAllowance,
		&s.TransportAllowance,
		&s.TaxDeduction,
		&s.PensionDeduction,
		&s.BankName,
		&s.AccountNumber,
		&s.AccountName,
		&s.UpdatedBy,
		&s.UpdatedAt,
		&s.EmployeeName,
	)
	return s, err
}

func (r *payrollRepository) UpsertSalaryStructure(ctx context.Context, s payroll.SalaryStructure) (payroll.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO salary_structures (
			company_id, employee_id, base_salary, housing_allowance, transport_allowance,
			tax_deduction, pension_deduction, bank_name, account_number, account_name, updated_by, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (company_id, employee_id) DO UPDATE SET
			base_salary = EXCLUDED.base_salary,
			housing_allowance = EXCLUDED.housing_allowance,
			transport_allowance = EXCLUDED.transport_allowance,
			tax_deduction = EXCLUDED.tax_deduction,
			pension_deduction = EXCLUDED.pension_deduction,
			bank_name = EXCLUDED.bank_name,
			account_number = EXCLUDED.account_number,
			account_name = EXCLUDED.account_name,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
	`

	_, err := q.Exec(ctx, query,
		s.CompanyID,
		s.EmployeeID,
		s.BaseSalary,
		s.HousingAllowance,
		s.TransportAllowance,
		s.TaxDeduction,
		s.PensionDeduction,
		s.BankName,
		s.AccountNumber,
		s.AccountName,
		s.UpdatedBy,
	)
	if err != nil {
		return payroll.SalaryStructure{}, fmt.Errorf("failed to upsert salary structure: %w", err)
	}
	return r.GetSalaryStructure(ctx, s.EmployeeID, s.CompanyID)
}

func (r *payrollRepository) GetSalaryStructure(ctx context.Context, employeeID string, companyID string) (payroll.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	s, err := scanStructure(q.QueryRow(ctx, structureSelect+` WHERE s.employee_id = $1 AND s.company_id = $2`, employeeID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.SalaryStructure{}, payroll.ErrSalaryStructureNotFound
		}
		return payroll.SalaryStructure{}, fmt.Errorf("failed to get salary structure: %w", err)
	}
	return s, nil
}

func (r *payrollRepository) ListSalaryStructures(ctx context.Context, companyID string) ([]payroll.SalaryStructure, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, structureSelect+` WHERE s.company_id = $1 ORDER BY s.employee_id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary structures: %w", err)
	}
	defer rows.Close()

	var structures []payroll.SalaryStructure
	for rows.Next() {
		s, err := scanStructure(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan salary structure: %w", err)
		}
		structures = append(structures, s)
	}
	return structures, rows.Err()
}

// ========== RUNS ==========

const runColumns = `id, company_id, month, year, status, days_in_month, daily_rate_divisor,
	total_payout, item_count, generated_by, generated_at, finalized_by, finalized_at`

func scanRun(row pgx.Row) (payroll.Run, error) {
	var run payroll.Run
	err := row.Scan(
		&run.ID,
		&run.CompanyID,
		&run.Month,
		&run.Year,
		&run.Status,
		&run.DaysInMonth,
		&run.DailyRateDivisor,
		&run.TotalPayout,
		&run.ItemCount,
		&run.GeneratedBy,
		&run.GeneratedAt,
		&run.FinalizedBy,
		&run.FinalizedAt,
	)
	return run, err
}

// CreateRun claims the (company, year, month) period.
func (r *payrollRepository) CreateRun(ctx context.Context, run payroll.Run) (payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_runs (
			company_id, month, year, status, days_in_month, daily_rate_divisor,
			total_payout, item_count, generated_by, generated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + runColumns

	created, err := scanRun(q.QueryRow(ctx, query,
		run.CompanyID,
		run.Month,
		run.Year,
		run.Status,
		run.DaysInMonth,
		run.DailyRateDivisor,
		run.TotalPayout,
		run.ItemCount,
		run.GeneratedBy,
		run.GeneratedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_payroll_runs_period") {
			return payroll.Run{}, payroll.ErrDuplicateRun
		}
		return payroll.Run{}, fmt.Errorf("failed to create payroll run: %w", err)
	}
	return created, nil
}

func (r *payrollRepository) getRun(ctx context.Context, query string, args ...interface{}) (payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	run, err := scanRun(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Run{}, payroll.ErrRunNotFound
		}
		return payroll.Run{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	return run, nil
}

func (r *payrollRepository) GetRunByID(ctx context.Context, id string, companyID string) (payroll.Run, error) {
	return r.getRun(ctx, `SELECT `+runColumns+` FROM payroll_runs WHERE id = $1 AND company_id = $2`, id, companyID)
}

func (r *payrollRepository) GetRunByIDForUpdate(ctx context.Context, id string, companyID string) (payroll.Run, error) {
	return r.getRun(ctx, `SELECT `+runColumns+` FROM payroll_runs WHERE id = $1 AND company_id = $2 FOR UPDATE`, id, companyID)
}

func (r *payrollRepository) GetRunByPeriod(ctx context.Context, month, year int, companyID string) (payroll.Run, error) {
	return r.getRun(ctx,
		`SELECT `+runColumns+` FROM payroll_runs WHERE company_id = $1 AND year = $2 AND month = $3`,
		companyID, year, month)
}

func (r *payrollRepository) ListRuns(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.Run, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "company_id = $1"
	args := []interface{}{companyID}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		where += fmt.Sprintf(" AND year = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_runs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll runs: %w", err)
	}

	query := "SELECT " + runColumns + " FROM payroll_runs WHERE " + where + " ORDER BY year DESC, month DESC"
	query, args = withPage(query, args, filter.Page, filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (r *payrollRepository) UpdateRunTotals(ctx context.Context, id string, total money.Amount, itemCount int, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE payroll_runs SET total_payout = $1, item_count = $2 WHERE id = $3 AND company_id = $4`,
		total, itemCount, id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payroll run totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}
	return nil
}

// FinalizeRun is guarded on the run still being a draft.
func (r *payrollRepository) FinalizeRun(ctx context.Context, run payroll.Run) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_runs
		SET status = 'FINALIZED', finalized_by = $1, finalized_at = $2
		WHERE id = $3 AND company_id = $4 AND status = 'DRAFT'
	`, run.FinalizedBy, run.FinalizedAt, run.ID, run.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to finalize payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotDraft
	}
	return nil
}

// DeleteRun removes a draft and, by cascade, its items.
func (r *payrollRepository) DeleteRun(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`DELETE FROM payroll_runs WHERE id = $1 AND company_id = $2 AND status = 'DRAFT'`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetRunByID(ctx, id, companyID); err != nil {
			return err
		}
		return payroll.ErrRunNotDraft
	}
	return nil
}

// ========== ITEMS ==========

const itemColumns = `id, run_id, company_id, employee_id, employee_name, base_salary, housing_allowance,
	transport_allowance, gross_pay, days_present, override_days, lateness_count, absent_days, per_day_rate,
	attendance_deductions, tax_deduction, pension_deduction, net_pay, flags, created_at`

// itemInsertColumns is itemColumns without the generated id and created_at.
const itemInsertColumns = 18

// itemBatchSize keeps one INSERT under the bind parameter limit.
const itemBatchSize = 500

func (r *payrollRepository) CreateItems(ctx context.Context, items []payroll.Item) error {
	q := GetQuerier(ctx, r.db)

	for start := 0; start < len(items); start += itemBatchSize {
		end := min(start+itemBatchSize, len(items))
		batch := items[start:end]

		valueStrings := make([]string, 0, len(batch))
		valueArgs := make([]interface{}, 0, len(batch)*itemInsertColumns)
		for i, it := range batch {
			placeholders := make([]string, itemInsertColumns)
			for j := range placeholders {
				placeholders[j] = fmt.Sprintf("$%d", i*itemInsertColumns+j+1)
			}
			valueStrings = append(valueStrings, "("+strings.Join(placeholders, ", ")+")")

			flags := make([]string, len(it.Flags))
			for j, f := range it.Flags {
				flags[j] = string(f)
			}
			valueArgs = append(valueArgs,
				it.RunID,
				it.CompanyID,
				it.EmployeeID,
				it.EmployeeName,
				it.BaseSalary,
				it.HousingAllowance,
				it.TransportAllowance,
				it.GrossPay,
				it.DaysPresent,
				it.OverrideDays,
				it.LatenessCount,
				it.AbsentDays,
				it.PerDayRate,
				it.AttendanceDeductions,
				it.TaxDeduction,
				it.PensionDeduction,
				it.NetPay,
				flags,
			)
		}

		query := `
			INSERT INTO payroll_items (
				run_id, company_id, employee_id, employee_name, base_salary, housing_allowance,
				transport_allowance, gross_pay, days_present, override_days, lateness_count, absent_days,
				per_day_rate, attendance_deductions, tax_deduction, pension_deduction, net_pay, flags
			)
			VALUES ` + strings.Join(valueStrings, ", ")

		if _, err := q.Exec(ctx, query, valueArgs...); err != nil {
			return fmt.Errorf("failed to insert payroll items: %w", err)
		}
	}
	return nil
}

func (r *payrollRepository) ListItems(ctx context.Context, runID string, companyID string) ([]payroll.Item, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + itemColumns + ` FROM payroll_items WHERE run_id = $1 AND company_id = $2 ORDER BY employee_name, id`

	rows, err := q.Query(ctx, query, runID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll items: %w", err)
	}
	defer rows.Close()

	var items []payroll.Item
	for rows.Next() {
		var it payroll.Item
		var flags []string
		if err := rows.Scan(
			&it.ID,
			&it.RunID,
			&it.CompanyID,
			&it.EmployeeID,
			&it.EmployeeName,
			&it.BaseSalary,
			&it.HousingAllowance,
			&it.TransportAllowance,
			&it.GrossPay,
			&it.DaysPresent,
			&it.OverrideDays,
			&it.LatenessCount,
			&it.AbsentDays,
			&it.PerDayRate,
			&it.AttendanceDeductions,
			&it.TaxDeduction,
			&it.PensionDeduction,
			&it.NetPay,
			&flags,
			&it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payroll item: %w", err)
		}
		for _, f := range flags {
			it.Flags = append(it.Flags, payroll.Flag(f))
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
