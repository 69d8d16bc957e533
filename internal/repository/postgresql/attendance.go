package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// ========== ATTEMPTS ==========

type attemptRepositoryImpl struct {
	db *database.DB
}

func NewAttemptRepository(db *database.DB) attendance.AttemptRepository {
	return &attemptRepositoryImpl{db: db}
}

const attemptColumns = `id, company_id, employee_id, attempted_at, work_date, submitted_lat, submitted_lng,
	distance_meters, radius_meters, verified, outcome, location_unavailable, created_at`

func scanAttempt(row pgx.Row) (attendance.Attempt, error) {
	var a attendance.Attempt
	err := row.Scan(
		&a.ID,
		&a.CompanyID,
		&a.EmployeeID,
		&a.AttemptedAt,
		&a.WorkDate,
		&a.SubmittedLat,
		&a.SubmittedLng,
		&a.DistanceMeters,
		&a.RadiusMeters,
		&a.Verified,
		&a.Outcome,
		&a.LocationUnavailable,
		&a.CreatedAt,
	)
	return a, err
}

// Create implements attendance.AttemptRepository.
func (r *attemptRepositoryImpl) Create(ctx context.Context, a attendance.Attempt) (attendance.Attempt, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_attempts (
			company_id, employee_id, attempted_at, work_date, submitted_lat, submitted_lng,
			distance_meters, radius_meters, verified, outcome, location_unavailable
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + attemptColumns

	created, err := scanAttempt(q.QueryRow(ctx, query,
		a.CompanyID,
		a.EmployeeID,
		a.AttemptedAt,
		a.WorkDate,
		a.SubmittedLat,
		a.SubmittedLng,
		a.DistanceMeters,
		a.RadiusMeters,
		a.Verified,
		a.Outcome,
		a.LocationUnavailable,
	))
	if err != nil {
		return attendance.Attempt{}, fmt.Errorf("failed to create attendance attempt: %w", err)
	}
	return created, nil
}

func (r *attemptRepositoryImpl) get(ctx context.Context, id, companyID, suffix string) (attendance.Attempt, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + attemptColumns + ` FROM attendance_attempts WHERE id = $1 AND company_id = $2` + suffix

	a, err := scanAttempt(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attempt{}, attendance.ErrAttemptNotFound
		}
		return attendance.Attempt{}, fmt.Errorf("failed to get attendance attempt with id %s: %w", id, err)
	}
	return a, nil
}

// GetByID implements attendance.AttemptRepository.
func (r *attemptRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (attendance.Attempt, error) {
	return r.get(ctx, id, companyID, "")
}

// GetByIDForUpdate implements attendance.AttemptRepository.
func (r *attemptRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string, companyID string) (attendance.Attempt, error) {
	return r.get(ctx, id, companyID, " FOR UPDATE")
}

// List implements attendance.AttemptRepository.
func (r *attemptRepositoryImpl) List(ctx context.Context, filter attendance.AttemptFilter, companyID string) ([]attendance.Attempt, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "company_id = $1"
	args := []interface{}{companyID}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		where += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if filter.Outcome != nil {
		args = append(args, *filter.Outcome)
		where += fmt.Sprintf(" AND outcome = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND work_date >= $%d::date", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND work_date <= $%d::date", len(args))
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_attempts WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance attempts: %w", err)
	}

	query := "SELECT " + attemptColumns + " FROM attendance_attempts WHERE " + where + " ORDER BY attempted_at DESC, id DESC"
	query, args = withPage(query, args, filter.Page, filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance attempts: %w", err)
	}
	defer rows.Close()

	var attempts []attendance.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// CountByEmployee implements attendance.AttemptRepository.
func (r *attemptRepositoryImpl) CountByEmployee(ctx context.Context, companyID string, from, to time.Time) (map[string]attendance.AttemptCounts, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, COUNT(*), COUNT(*) FILTER (WHERE NOT verified)
		FROM attendance_attempts
		WHERE company_id = $1 AND work_date BETWEEN $2 AND $3
		GROUP BY employee_id
	`

	rows, err := q.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance attempts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]attendance.AttemptCounts)
	for rows.Next() {
		var employeeID string
		var c attendance.AttemptCounts
		if err := rows.Scan(&employeeID, &c.Total, &c.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan attempt counts: %w", err)
		}
		counts[employeeID] = c
	}
	return counts, rows.Err()
}

// ========== SESSIONS ==========

type sessionRepositoryImpl struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) attendance.SessionRepository {
	return &sessionRepositoryImpl{db: db}
}

const sessionSelect = `
	SELECT s.id, s.company_id, s.employee_id, s.work_date, s.clock_in_at, s.clock_out_at,
		   s.is_late, s.source, s.attempt_id, s.created_at, s.updated_at, e.full_name
	FROM clock_sessions s
	JOIN employees e ON e.id = s.employee_id
`

func scanSession(row pgx.Row) (attendance.ClockSession, error) {
	var cs attendance.ClockSession
	err := row.Scan(
		&cs.ID,
		&cs.CompanyID,
		&cs.EmployeeID,
		&cs.WorkDate,
		&cs.ClockInAt,
		&cs.ClockOutAt,
		&cs.IsLate,
		&cs.Source,
		&cs.AttemptID,
		&cs.CreatedAt,
		&cs.UpdatedAt,
		&cs.EmployeeName,
	)
	return cs, err
}

func collectSessions(rows pgx.Rows) ([]attendance.ClockSession, error) {
	defer rows.Close()
	var sessions []attendance.ClockSession
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clock session: %w", err)
		}
		sessions = append(sessions, cs)
	}
	return sessions, rows.Err()
}

// CreateIfAbsent implements attendance.SessionRepository. The unique key on
// (company, employee, work_date) decides the winner between concurrent inserts.
func (r *sessionRepositoryImpl) CreateIfAbsent(ctx context.Context, cs attendance.ClockSession) (attendance.ClockSession, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO clock_sessions (company_id, employee_id, work_date, clock_in_at, clock_out_at, is_late, source, attempt_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT uk_clock_sessions_day DO NOTHING
		RETURNING id
	`

	var id string
	err := q.QueryRow(ctx, query,
		cs.CompanyID,
		cs.EmployeeID,
		cs.WorkDate,
		cs.ClockInAt,
		cs.ClockOutAt,
		cs.IsLate,
		cs.Source,
		cs.AttemptID,
	).Scan(&id)
	created := true
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return attendance.ClockSession{}, false, fmt.Errorf("failed to create clock session: %w", err)
		}
		created = false
	}

	stored, err := r.GetByEmployeeAndDate(ctx, cs.EmployeeID, cs.WorkDate, cs.CompanyID)
	if err != nil {
		return attendance.ClockSession{}, false, err
	}
	return stored, created, nil
}

// GetByEmployeeAndDate implements attendance.SessionRepository.
func (r *sessionRepositoryImpl) GetByEmployeeAndDate(ctx context.Context, employeeID string, workDate time.Time, companyID string) (attendance.ClockSession, error) {
	q := GetQuerier(ctx, r.db)

	query := sessionSelect + ` WHERE s.company_id = $1 AND s.employee_id = $2 AND s.work_date = $3`

	cs, err := scanSession(q.QueryRow(ctx, query, companyID, employeeID, workDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.ClockSession{}, attendance.ErrSessionNotFound
		}
		return attendance.ClockSession{}, fmt.Errorf("failed to get clock session: %w", err)
	}
	return cs, nil
}

// UpdateClockOut implements attendance.SessionRepository. A session is closed at most once.
func (r *sessionRepositoryImpl) UpdateClockOut(ctx context.Context, id string, clockOutAt time.Time, companyID string) (attendance.ClockSession, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		WITH target AS (
			SELECT id, clock_out_at FROM clock_sessions WHERE id = $1 AND company_id = $2
		), updated AS (
			UPDATE clock_sessions
			SET clock_out_at = $3, updated_at = NOW()
			WHERE id = $1 AND company_id = $2 AND clock_out_at IS NULL
			RETURNING id
		)
		SELECT (SELECT COUNT(*) FROM target), (SELECT COUNT(*) FROM updated)
	`

	var found, updated int
	if err := q.QueryRow(ctx, query, id, companyID, clockOutAt).Scan(&found, &updated); err != nil {
		return attendance.ClockSession{}, fmt.Errorf("failed to clock out session %s: %w", id, err)
	}
	switch {
	case found == 0:
		return attendance.ClockSession{}, attendance.ErrSessionNotFound
	case updated == 0:
		return attendance.ClockSession{}, attendance.ErrAlreadyClockedOut
	}

	cs, err := scanSession(q.QueryRow(ctx, sessionSelect+` WHERE s.id = $1`, id))
	if err != nil {
		return attendance.ClockSession{}, fmt.Errorf("failed to reload clock session %s: %w", id, err)
	}
	return cs, nil
}

// List implements attendance.SessionRepository.
func (r *sessionRepositoryImpl) List(ctx context.Context, filter attendance.SessionFilter, companyID string) ([]attendance.ClockSession, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "s.company_id = $1"
	args := []interface{}{companyID}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		where += fmt.Sprintf(" AND s.employee_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND s.work_date >= $%d::date", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND s.work_date <= $%d::date", len(args))
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM clock_sessions s WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clock sessions: %w", err)
	}

	query := sessionSelect + " WHERE " + where + " ORDER BY s.clock_in_at DESC, s.id DESC"
	query, args = withPage(query, args, filter.Page, filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clock sessions: %w", err)
	}
	sessions, err := collectSessions(rows)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// SummarizePeriod implements attendance.SessionRepository.
func (r *sessionRepositoryImpl) SummarizePeriod(ctx context.Context, companyID string, from, to time.Time) (map[string]attendance.PresenceSummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id,
			   COUNT(DISTINCT work_date),
			   COUNT(*) FILTER (WHERE source = 'DISPUTE_OVERRIDE'),
			   COUNT(*) FILTER (WHERE is_late)
		FROM clock_sessions
		WHERE company_id = $1 AND work_date BETWEEN $2 AND $3
		GROUP BY employee_id
	`

	rows, err := q.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize clock sessions: %w", err)
	}
	defer rows.Close()

	summaries := make(map[string]attendance.PresenceSummary)
	for rows.Next() {
		var s attendance.PresenceSummary
		if err := rows.Scan(&s.EmployeeID, &s.DaysPresent, &s.OverrideDays, &s.LatenessCount); err != nil {
			return nil, fmt.Errorf("failed to scan presence summary: %w", err)
		}
		summaries[s.EmployeeID] = s
	}
	return summaries, rows.Err()
}

// ListStaleOpen implements attendance.SessionRepository.
func (r *sessionRepositoryImpl) ListStaleOpen(ctx context.Context, before time.Time, limit int) ([]attendance.ClockSession, error) {
	q := GetQuerier(ctx, r.db)

	query := sessionSelect + ` WHERE s.clock_out_at IS NULL AND s.work_date < $1 ORDER BY s.work_date DESC, s.id DESC`
	args := []interface{}{before}
	query, args = withPage(query, args, 1, limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale clock sessions: %w", err)
	}
	return collectSessions(rows)
}
