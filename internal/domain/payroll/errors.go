package payroll

import "errors"

var (
	ErrSalaryStructureNotFound = errors.New("salary structure not found")
	ErrRunNotFound             = errors.New("payroll run not found")
	ErrDuplicateRun            = errors.New("a payroll run already exists for this period")
	ErrRunNotDraft             = errors.New("payroll run is already finalized")
	ErrRunNotFinalized         = errors.New("payroll run must be finalized first")
	ErrTotalMismatch           = errors.New("payroll run total does not match the sum of its items")
	ErrNoActiveEmployees       = errors.New("no active employees to include in the run")
	ErrUnresolvedDisputes      = errors.New("attendance disputes for this period are still pending")
	ErrRunStale                = errors.New("attendance changed after the run was generated")
)

// DuplicateRunError carries the run that already holds the period.
type DuplicateRunError struct {
	Existing Run
}

func (e *DuplicateRunError) Error() string {
	return ErrDuplicateRun.Error()
}

func (e *DuplicateRunError) Unwrap() error {
	return ErrDuplicateRun
}
