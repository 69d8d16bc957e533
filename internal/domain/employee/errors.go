package employee

import "errors"

var (
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrEmployeeCodeExists   = errors.New("employee code already exists")
	ErrEmployeeRequired     = errors.New("an employee profile is required for this action")
	ErrEmployeeInactive     = errors.New("employee is not active")
	ErrFutureDateNotAllowed = errors.New("date cannot be in the future")
)
