package user

import (
	"context"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, newUser User) (User, error)
	// ListByRoles returns the company's users holding any of roles.
	ListByRoles(ctx context.Context, companyID string, roles []Role) ([]User, error)
}
