package attendance

import (
	"context"
	"time"
)

// AttemptRepository is append-only: there is no update or delete.
// All methods include companyID parameter to prevent cross-company data access.
type AttemptRepository interface {
	Create(ctx context.Context, attempt Attempt) (Attempt, error)

	GetByID(ctx context.Context, id string, companyID string) (Attempt, error)

	// GetByIDForUpdate locks the attempt row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string, companyID string) (Attempt, error)

	List(ctx context.Context, filter AttemptFilter, companyID string) ([]Attempt, int64, error)

	// CountByEmployee returns total and failed attempt counts per employee in [from, to].
	CountByEmployee(ctx context.Context, companyID string, from, to time.Time) (map[string]AttemptCounts, error)
}

type AttemptCounts struct {
	Total  int
	Failed int
}

type SessionRepository interface {
	// CreateIfAbsent inserts the session unless one exists for (employee, work_date).
	// The stored session is returned either way; created reports which happened.
	CreateIfAbsent(ctx context.Context, session ClockSession) (stored ClockSession, created bool, err error)

	GetByEmployeeAndDate(ctx context.Context, employeeID string, workDate time.Time, companyID string) (ClockSession, error)

	UpdateClockOut(ctx context.Context, id string, clockOutAt time.Time, companyID string) (ClockSession, error)

	List(ctx context.Context, filter SessionFilter, companyID string) ([]ClockSession, int64, error)

	// SummarizePeriod returns one summary per employee that has sessions in [from, to].
	SummarizePeriod(ctx context.Context, companyID string, from, to time.Time) (map[string]PresenceSummary, error)

	// ListStaleOpen returns sessions still open whose work date is before the given day, across companies.
	ListStaleOpen(ctx context.Context, before time.Time, limit int) ([]ClockSession, error)
}
