package auth

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/auth"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
	"github.com/cmlabs-hris/presence-payroll/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(f *testutil.Fixture) auth.AuthService {
	return NewAuthService(f.Tx, f.Users, f.Companies, f.JWT, f.Defaults)
}

func registerRequest() auth.RegisterRequest {
	return auth.RegisterRequest{
		CompanyName:     "Greenfield Academy",
		CompanyUsername: "greenfield",
		Email:           "Admin@Greenfield.edu",
		Password:        "SecurePass123!",
		ConfirmPassword: "SecurePass123!",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := newService(f)

	resp, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, string(user.RoleAdmin), resp.Role)

	created, err := f.Users.GetByEmail(context.Background(), "admin@greenfield.edu")
	require.NoError(t, err)
	assert.Equal(t, resp.CompanyID, created.CompanyID)
	assert.NotEqual(t, "SecurePass123!", created.PasswordHash)

	c, err := f.Companies.GetByID(context.Background(), resp.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, c.RadiusMeters)
	assert.Equal(t, "UTC", c.Timezone)
}

func TestAuthService_Register_PasswordMismatch(t *testing.T) {
	svc := newService(testutil.NewFixture(t))

	req := registerRequest()
	req.ConfirmPassword = "different"
	_, err := svc.Register(context.Background(), req)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestAuthService_Register_DuplicateEmailRollsBackCompany(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := newService(f)

	_, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	req := registerRequest()
	req.CompanyUsername = "second-school"
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, user.ErrUserEmailExists)

	// The second company must not survive the failed registration.
	req.Email = "other@greenfield.edu"
	_, err = svc.Register(context.Background(), req)
	assert.NoError(t, err)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	svc := newService(testutil.NewFixture(t))

	_, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	req := registerRequest()
	req.Email = "other@greenfield.edu"
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, company.ErrCompanyUsernameExists)
}

func TestAuthService_Login(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := newService(f)

	registered, err := svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		resp, err := svc.Login(context.Background(), auth.LoginRequest{Email: " ADMIN@greenfield.edu ", Password: "SecurePass123!"})
		require.NoError(t, err)
		assert.Equal(t, registered.UserID, resp.UserID)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), auth.LoginRequest{Email: "admin@greenfield.edu", Password: "nope"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), auth.LoginRequest{Email: "ghost@greenfield.edu", Password: "SecurePass123!"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("account without password", func(t *testing.T) {
		c := f.Company(t, 6.5, 3.4, 100)
		_, u := f.Member(t, c.ID, "No Password", user.RoleStaff)
		_, err := svc.Login(context.Background(), auth.LoginRequest{Email: u.Email, Password: "anything"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}
