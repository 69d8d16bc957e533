package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/auth"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	tx database.TxManager
	user.UserRepository
	company.CompanyRepository
	jwt.Service
	defaults company.Defaults
}

func NewAuthService(tx database.TxManager, userRepository user.UserRepository, companyRepository company.CompanyRepository, jwtService jwt.Service, defaults company.Defaults) auth.AuthService {
	return &AuthServiceImpl{
		tx:                tx,
		UserRepository:    userRepository,
		CompanyRepository: companyRepository,
		Service:           jwtService,
		defaults:          defaults,
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Register creates the company and its first admin in one transaction.
func (a *AuthServiceImpl) Register(ctx context.Context, req auth.RegisterRequest) (auth.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var admin user.User
	err = a.tx.WithinTx(ctx, func(ctx context.Context) error {
		newCompany, err := a.CompanyRepository.Create(ctx, company.Company{
			Name:         strings.TrimSpace(req.CompanyName),
			Username:     strings.ToLower(strings.TrimSpace(req.CompanyUsername)),
			RadiusMeters: a.defaults.RadiusMeters,
			Timezone:     a.defaults.Timezone,
			LateCutoff:   a.defaults.LateCutoff,
		})
		if err != nil {
			return err
		}

		admin, err = a.UserRepository.Create(ctx, user.User{
			CompanyID:    newCompany.ID,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         user.RoleAdmin,
		})
		return err
	})
	if err != nil {
		return auth.TokenResponse{}, err
	}

	return a.issue(admin)
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, req auth.LoginRequest) (auth.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	userData, err := a.UserRepository.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if userData.PasswordHash == "" {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(userData.PasswordHash), []byte(req.Password)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	return a.issue(userData)
}

func (a *AuthServiceImpl) issue(u user.User) (auth.TokenResponse, error) {
	identity := jwt.Identity{UserID: u.ID, CompanyID: u.CompanyID, EmployeeID: u.EmployeeID, Role: u.Role}
	token, expiresAt, err := a.Service.GenerateAccessToken(identity, u.Email)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}
	return auth.TokenResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		TokenType:   "Bearer",
		UserID:      u.ID,
		CompanyID:   u.CompanyID,
		EmployeeID:  u.EmployeeID,
		Role:        string(u.Role),
	}, nil
}
