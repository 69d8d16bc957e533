package auth

import (
	"strings"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
)

// RegisterRequest bootstraps a company together with its first admin login.
type RegisterRequest struct {
	CompanyName     string `json:"company_name" validate:"required,max=255"`
	CompanyUsername string `json:"company_username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	errs := validator.Struct(r)
	if r.Password != r.ConfirmPassword {
		errs = append(errs, validator.ValidationError{Field: "confirm_password", Message: "passwords do not match"})
	}
	return errs.OrNil()
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return validator.Struct(r).OrNil()
}

type TokenResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresAt   int64   `json:"expires_at"`
	TokenType   string  `json:"token_type"`
	UserID      string  `json:"user_id"`
	CompanyID   string  `json:"company_id"`
	EmployeeID  *string `json:"employee_id,omitempty"`
	Role        string  `json:"role"`
}
