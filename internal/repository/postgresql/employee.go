package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `id, company_id, user_id, employee_code, full_name, employment_status, hire_date, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID,
		&e.CompanyID,
		&e.UserID,
		&e.EmployeeCode,
		&e.FullName,
		&e.EmploymentStatus,
		&e.HireDate,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func collectEmployees(rows pgx.Rows) ([]employee.Employee, error) {
	defer rows.Close()
	var employees []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND company_id = $2`

	e, err := scanEmployee(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee with id %s: %w", id, err)
	}
	return e, nil
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Create(ctx context.Context, newEmployee employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	status := newEmployee.EmploymentStatus
	if status == "" {
		status = employee.EmploymentStatusActive
	}

	query := `
		INSERT INTO employees (company_id, user_id, employee_code, full_name, employment_status, hire_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + employeeColumns

	created, err := scanEmployee(q.QueryRow(ctx, query,
		newEmployee.CompanyID,
		newEmployee.UserID,
		newEmployee.EmployeeCode,
		newEmployee.FullName,
		status,
		newEmployee.HireDate,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_employees_code") {
			return employee.Employee{}, employee.ErrEmployeeCodeExists
		}
		return employee.Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}
	return created, nil
}

// ExistsByCode implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) ExistsByCode(ctx context.Context, companyID string, employeeCode string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM employees WHERE company_id = $1 AND employee_code = $2)`,
		companyID, employeeCode,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check employee code: %w", err)
	}
	return exists, nil
}

// LinkUser implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) LinkUser(ctx context.Context, id string, userID string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE employees SET user_id = $1, updated_at = NOW() WHERE id = $2 AND company_id = $3`,
		userID, id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to link user to employee %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// GetActiveByCompanyID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetActiveByCompanyID(ctx context.Context, companyID string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE company_id = $1 AND employment_status = 'active'
		ORDER BY full_name, id
	`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	return collectEmployees(rows)
}

// List implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) List(ctx context.Context, companyID string, filter employee.EmployeeFilter) ([]employee.Employee, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "company_id = $1"
	args := []interface{}{companyID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND employment_status = $%d", len(args))
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM employees WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count employees: %w", err)
	}

	query := "SELECT " + employeeColumns + " FROM employees WHERE " + where + " ORDER BY full_name, id"
	query, args = withPage(query, args, filter.Page, filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list employees: %w", err)
	}
	employees, err := collectEmployees(rows)
	if err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

// withPage appends LIMIT/OFFSET. A non-positive limit returns every row.
func withPage(query string, args []interface{}, page, limit int) (string, []interface{}) {
	if limit <= 0 {
		return query, args
	}
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	return query + fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}
