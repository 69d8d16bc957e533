package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Identity is who is calling and for which tenant. Every core operation is scoped by it.
type Identity struct {
	UserID     string
	CompanyID  string
	EmployeeID *string
	Role       user.Role
}

type Service interface {
	GenerateAccessToken(identity Identity, email string) (token string, expiresAt int64, err error)
	GenerateSSEToken(identity Identity) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (Identity, error)
	ContextWithIdentity(ctx context.Context, identity Identity) (context.Context, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpiration time.Duration) Service {
	return &JWTService{
		accessTokenExpiration: accessTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(identity Identity, email string) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpiration).Unix()

	claims := identityClaims(identity)
	claims["email"] = email
	claims["type"] = "access"
	claims["exp"] = expiresAt

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for EventSource clients, which cannot set headers.
func (j *JWTService) GenerateSSEToken(identity Identity) (token string, expiresIn int, err error) {
	expiresIn = 300
	claims := identityClaims(identity)
	claims["type"] = "sse"
	claims["exp"] = time.Now().Add(time.Duration(expiresIn) * time.Second).Unix()

	_, tokenString, err := j.tokenAuth.Encode(claims)
	if err != nil {
		return "", 0, err
	}
	return tokenString, expiresIn, nil
}

func (j *JWTService) ValidateSSEToken(tokenString string) (Identity, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return Identity{}, err
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		return Identity{}, err
	}
	if tokenType, _ := claims["type"].(string); tokenType != "sse" {
		return Identity{}, jwt.ErrInvalidJWT()
	}
	return identityFromClaims(claims)
}

func identityClaims(identity Identity) map[string]interface{} {
	claims := map[string]interface{}{
		"user_id":    identity.UserID,
		"company_id": identity.CompanyID,
		"role":       string(identity.Role),
	}
	if identity.EmployeeID != nil {
		claims["employee_id"] = *identity.EmployeeID
	} else {
		claims["employee_id"] = nil
	}
	return claims
}

func identityFromClaims(claims map[string]interface{}) (Identity, error) {
	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return Identity{}, fmt.Errorf("company_id claim is missing or invalid")
	}
	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)

	identity := Identity{
		UserID:    userID,
		CompanyID: companyID,
		Role:      user.Role(role),
	}
	if employeeID, ok := claims["employee_id"].(string); ok && employeeID != "" {
		identity.EmployeeID = &employeeID
	}
	return identity, nil
}

// IdentityFromContext reads the verified claims jwtauth placed on the request context.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	return identityFromClaims(claims)
}

// ContextWithIdentity is used by background callers and tests that act on behalf of a user
// without an HTTP request.
func (j *JWTService) ContextWithIdentity(ctx context.Context, identity Identity) (context.Context, error) {
	claims := identityClaims(identity)
	claims["type"] = "access"
	claims["exp"] = time.Now().Add(j.accessTokenExpiration).Unix()
	token, _, err := j.tokenAuth.Encode(claims)
	if err != nil {
		return nil, err
	}
	return jwtauth.NewContext(ctx, token, nil), nil
}
