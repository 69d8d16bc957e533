package employee

import (
	"context"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
	authservice "github.com/cmlabs-hris/presence-payroll/internal/service/auth"
)

type EmployeeServiceImpl struct {
	tx           database.TxManager
	employeeRepo employee.EmployeeRepository
	userRepo     user.UserRepository
}

func NewEmployeeService(tx database.TxManager, employeeRepo employee.EmployeeRepository, userRepo user.UserRepository) employee.EmployeeService {
	return &EmployeeServiceImpl{
		tx:           tx,
		employeeRepo: employeeRepo,
		userRepo:     userRepo,
	}
}

func mapEmployeeToResponse(emp employee.Employee) employee.EmployeeResponse {
	return employee.EmployeeResponse{
		ID:               emp.ID,
		EmployeeCode:     emp.EmployeeCode,
		FullName:         emp.FullName,
		EmploymentStatus: string(emp.EmploymentStatus),
		HireDate:         emp.HireDate.Format("2006-01-02"),
		UserID:           emp.UserID,
	}
}

// Create adds a staff record. When email and password are given a login is created and linked
// in the same transaction.
func (s *EmployeeServiceImpl) Create(ctx context.Context, req employee.CreateEmployeeRequest) (employee.EmployeeResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return employee.EmployeeResponse{}, err
	}
	if !user.HasPermission(identity.Role, user.PermissionEmployeeManage) {
		return employee.EmployeeResponse{}, user.ErrInsufficientPermissions
	}
	if err := req.Validate(); err != nil {
		return employee.EmployeeResponse{}, err
	}

	hireDate, _ := validator.IsValidDate(req.HireDate)

	var hash string
	if req.Password != nil {
		if hash, err = authservice.HashPassword(*req.Password); err != nil {
			return employee.EmployeeResponse{}, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	var created employee.Employee
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		exists, err := s.employeeRepo.ExistsByCode(ctx, identity.CompanyID, req.EmployeeCode)
		if err != nil {
			return fmt.Errorf("failed to check employee code: %w", err)
		}
		if exists {
			return employee.ErrEmployeeCodeExists
		}

		created, err = s.employeeRepo.Create(ctx, employee.Employee{
			CompanyID:        identity.CompanyID,
			EmployeeCode:     req.EmployeeCode,
			FullName:         req.FullName,
			EmploymentStatus: employee.EmploymentStatusActive,
			HireDate:         hireDate,
		})
		if err != nil {
			return err
		}

		if req.Email == nil {
			return nil
		}

		role := user.RoleStaff
		if req.Role != nil {
			role = user.Role(*req.Role)
		}
		employeeID := created.ID
		login, err := s.userRepo.Create(ctx, user.User{
			CompanyID:    identity.CompanyID,
			EmployeeID:   &employeeID,
			Email:        strings.ToLower(strings.TrimSpace(*req.Email)),
			PasswordHash: hash,
			Role:         role,
		})
		if err != nil {
			return err
		}

		if err := s.employeeRepo.LinkUser(ctx, created.ID, login.ID, identity.CompanyID); err != nil {
			return fmt.Errorf("failed to link user: %w", err)
		}
		created.UserID = &login.ID
		return nil
	})
	if err != nil {
		return employee.EmployeeResponse{}, err
	}

	return mapEmployeeToResponse(created), nil
}

// List implements employee.EmployeeService.
func (s *EmployeeServiceImpl) List(ctx context.Context, filter employee.EmployeeFilter) (employee.ListEmployeeResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return employee.ListEmployeeResponse{}, err
	}
	if !user.HasPermission(identity.Role, user.PermissionAttendanceViewAll) {
		return employee.ListEmployeeResponse{}, user.ErrInsufficientPermissions
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	employees, total, err := s.employeeRepo.List(ctx, identity.CompanyID, filter)
	if err != nil {
		return employee.ListEmployeeResponse{}, fmt.Errorf("failed to list employees: %w", err)
	}

	responses := make([]employee.EmployeeResponse, 0, len(employees))
	for _, emp := range employees {
		responses = append(responses, mapEmployeeToResponse(emp))
	}

	return employee.ListEmployeeResponse{
		Employees:  responses,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}
