package memory

import (
	"context"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
)

// ========== ATTEMPTS ==========

type attemptRepository struct{ s *Store }

func NewAttemptRepository(s *Store) attendance.AttemptRepository {
	return &attemptRepository{s: s}
}

func (r *attemptRepository) Create(ctx context.Context, a attendance.Attempt) (attendance.Attempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt = r.s.now()
	r.s.data.attempts[a.ID] = a
	return a, nil
}

func (r *attemptRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.Attempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.data.attempts[id]
	if !ok || a.CompanyID != companyID {
		return attendance.Attempt{}, attendance.ErrAttemptNotFound
	}
	return a, nil
}

func (r *attemptRepository) GetByIDForUpdate(ctx context.Context, id string, companyID string) (attendance.Attempt, error) {
	return r.GetByID(ctx, id, companyID)
}

func (r *attemptRepository) List(ctx context.Context, filter attendance.AttemptFilter, companyID string) ([]attendance.Attempt, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	from, hasFrom := parseDay(filter.From)
	to, hasTo := parseDay(filter.To)

	var out []attendance.Attempt
	for _, a := range r.s.data.attempts {
		if a.CompanyID != companyID {
			continue
		}
		if filter.EmployeeID != nil && a.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Outcome != nil && string(a.Outcome) != *filter.Outcome {
			continue
		}
		if (hasFrom && a.WorkDate.Before(from)) || (hasTo && a.WorkDate.After(to)) {
			continue
		}
		out = append(out, a)
	}
	sortByTimeDesc(out, func(a attendance.Attempt) time.Time { return a.AttemptedAt }, func(a attendance.Attempt) string { return a.ID })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r *attemptRepository) CountByEmployee(ctx context.Context, companyID string, from, to time.Time) (map[string]attendance.AttemptCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]attendance.AttemptCounts)
	for _, a := range r.s.data.attempts {
		if a.CompanyID != companyID || !inRange(a.WorkDate, from, to) {
			continue
		}
		c := out[a.EmployeeID]
		c.Total++
		if !a.Verified {
			c.Failed++
		}
		out[a.EmployeeID] = c
	}
	return out, nil
}

// ========== SESSIONS ==========

type sessionRepository struct{ s *Store }

func NewSessionRepository(s *Store) attendance.SessionRepository {
	return &sessionRepository{s: s}
}

func (r *sessionRepository) find(companyID, employeeID string, workDate time.Time) (attendance.ClockSession, bool) {
	for _, cs := range r.s.data.sessions {
		if cs.CompanyID == companyID && cs.EmployeeID == employeeID && cs.WorkDate.Equal(workDate) {
			return cs, true
		}
	}
	return attendance.ClockSession{}, false
}

func (r *sessionRepository) CreateIfAbsent(ctx context.Context, cs attendance.ClockSession) (attendance.ClockSession, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.find(cs.CompanyID, cs.EmployeeID, cs.WorkDate); ok {
		existing.EmployeeName = r.s.employeeName(existing.EmployeeID)
		return existing, false, nil
	}
	if cs.ID == "" {
		cs.ID = newID()
	}
	now := r.s.now()
	cs.CreatedAt, cs.UpdatedAt = now, now
	cs.EmployeeName = nil
	r.s.data.sessions[cs.ID] = cs
	cs.EmployeeName = r.s.employeeName(cs.EmployeeID)
	return cs, true, nil
}

func (r *sessionRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, workDate time.Time, companyID string) (attendance.ClockSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cs, ok := r.find(companyID, employeeID, workDate)
	if !ok {
		return attendance.ClockSession{}, attendance.ErrSessionNotFound
	}
	cs.EmployeeName = r.s.employeeName(cs.EmployeeID)
	return cs, nil
}

func (r *sessionRepository) UpdateClockOut(ctx context.Context, id string, clockOutAt time.Time, companyID string) (attendance.ClockSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cs, ok := r.s.data.sessions[id]
	if !ok || cs.CompanyID != companyID {
		return attendance.ClockSession{}, attendance.ErrSessionNotFound
	}
	if cs.ClockOutAt != nil {
		return attendance.ClockSession{}, attendance.ErrAlreadyClockedOut
	}
	cs.ClockOutAt = &clockOutAt
	cs.UpdatedAt = r.s.now()
	r.s.data.sessions[id] = cs
	cs.EmployeeName = r.s.employeeName(cs.EmployeeID)
	return cs, nil
}

func (r *sessionRepository) List(ctx context.Context, filter attendance.SessionFilter, companyID string) ([]attendance.ClockSession, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	from, hasFrom := parseDay(filter.From)
	to, hasTo := parseDay(filter.To)

	var out []attendance.ClockSession
	for _, cs := range r.s.data.sessions {
		if cs.CompanyID != companyID {
			continue
		}
		if filter.EmployeeID != nil && cs.EmployeeID != *filter.EmployeeID {
			continue
		}
		if (hasFrom && cs.WorkDate.Before(from)) || (hasTo && cs.WorkDate.After(to)) {
			continue
		}
		cs.EmployeeName = r.s.employeeName(cs.EmployeeID)
		out = append(out, cs)
	}
	sortByTimeDesc(out, func(cs attendance.ClockSession) time.Time { return cs.ClockInAt }, func(cs attendance.ClockSession) string { return cs.ID })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r *sessionRepository) SummarizePeriod(ctx context.Context, companyID string, from, to time.Time) (map[string]attendance.PresenceSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	days := make(map[string]map[string]struct{})
	out := make(map[string]attendance.PresenceSummary)
	for _, cs := range r.s.data.sessions {
		if cs.CompanyID != companyID || !inRange(cs.WorkDate, from, to) {
			continue
		}
		sum := out[cs.EmployeeID]
		sum.EmployeeID = cs.EmployeeID
		if days[cs.EmployeeID] == nil {
			days[cs.EmployeeID] = make(map[string]struct{})
		}
		days[cs.EmployeeID][cs.WorkDate.Format("2006-01-02")] = struct{}{}
		sum.DaysPresent = len(days[cs.EmployeeID])
		if cs.Source == attendance.SessionSourceDisputeOverride {
			sum.OverrideDays++
		}
		if cs.IsLate {
			sum.LatenessCount++
		}
		out[cs.EmployeeID] = sum
	}
	return out, nil
}

func (r *sessionRepository) ListStaleOpen(ctx context.Context, before time.Time, limit int) ([]attendance.ClockSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []attendance.ClockSession
	for _, cs := range r.s.data.sessions {
		if cs.ClockOutAt == nil && cs.WorkDate.Before(before) {
			out = append(out, cs)
		}
	}
	sortByTimeDesc(out, func(cs attendance.ClockSession) time.Time { return cs.WorkDate }, func(cs attendance.ClockSession) string { return cs.ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
