package user

import "time"

type Role string

const (
	RoleStaff     Role = "staff"     // Clocks in, submits disputes
	RolePrincipal Role = "principal" // Decides disputes and approvals
	RoleBursar    Role = "bursar"    // Owns salary structures and payroll runs
	RoleAdmin     Role = "admin"     // Company configuration and staff records
)

func (r Role) Valid() bool {
	switch r {
	case RoleStaff, RolePrincipal, RoleBursar, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string
	CompanyID    string
	EmployeeID   *string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanDecide reports whether the user may approve or reject queued items.
func (u *User) CanDecide() bool {
	return HasPermission(u.Role, PermissionApprovalDecide)
}
