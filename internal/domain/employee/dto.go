package employee

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
)

type CreateEmployeeRequest struct {
	EmployeeCode string  `json:"employee_code" validate:"required,max=32"`
	FullName     string  `json:"full_name" validate:"required,max=150"`
	HireDate     string  `json:"hire_date" validate:"required"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Password     *string `json:"password,omitempty" validate:"omitempty,min=8"`
	Role         *string `json:"role,omitempty" validate:"omitempty,oneof=staff principal bursar admin"`
}

func (r *CreateEmployeeRequest) Validate() error {
	r.EmployeeCode = strings.TrimSpace(r.EmployeeCode)
	r.FullName = strings.TrimSpace(r.FullName)

	errs := validator.Struct(r)

	if r.HireDate != "" {
		hire, ok := validator.IsValidDate(r.HireDate)
		if !ok {
			errs = append(errs, validator.ValidationError{Field: "hire_date", Message: "must be in YYYY-MM-DD format"})
		} else if hire.After(time.Now()) {
			errs = append(errs, validator.ValidationError{Field: "hire_date", Message: ErrFutureDateNotAllowed.Error()})
		}
	}
	if (r.Email == nil) != (r.Password == nil) {
		errs = append(errs, validator.ValidationError{Field: "email", Message: "email and password must be provided together"})
	}

	return errs.OrNil()
}

type EmployeeFilter struct {
	Status *string
	Page   int
	Limit  int
}

type EmployeeResponse struct {
	ID               string  `json:"id"`
	EmployeeCode     string  `json:"employee_code"`
	FullName         string  `json:"full_name"`
	EmploymentStatus string  `json:"employment_status"`
	HireDate         string  `json:"hire_date"`
	UserID           *string `json:"user_id,omitempty"`
}

type ListEmployeeResponse struct {
	Employees  []EmployeeResponse `json:"employees"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
}
