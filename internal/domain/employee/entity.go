package employee

import (
	"time"
)

type Employee struct {
	ID               string
	CompanyID        string
	UserID           *string
	EmployeeCode     string
	FullName         string
	EmploymentStatus EmploymentStatus
	HireDate         time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentStatusActive
}
