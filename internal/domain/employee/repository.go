package employee

import "context"

// EmployeeRepository is always scoped by companyID.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)
	Create(ctx context.Context, newEmployee Employee) (Employee, error)
	ExistsByCode(ctx context.Context, companyID string, employeeCode string) (bool, error)
	LinkUser(ctx context.Context, id string, userID string, companyID string) error
	GetActiveByCompanyID(ctx context.Context, companyID string) ([]Employee, error)
	List(ctx context.Context, companyID string, filter EmployeeFilter) ([]Employee, int64, error)
}
