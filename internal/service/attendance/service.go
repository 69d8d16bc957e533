package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/geofence"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/metrics"
)

// staleCloseBatch bounds one CloseStaleSessions pass.
const staleCloseBatch = 500

type AttendanceServiceImpl struct {
	tx                  database.TxManager
	attemptRepo         attendance.AttemptRepository
	sessionRepo         attendance.SessionRepository
	companyRepo         company.CompanyRepository
	employeeRepo        employee.EmployeeRepository
	notificationService notification.Service
	defaults            company.Defaults
	now                 func() time.Time
}

func NewAttendanceService(
	tx database.TxManager,
	attemptRepo attendance.AttemptRepository,
	sessionRepo attendance.SessionRepository,
	companyRepo company.CompanyRepository,
	employeeRepo employee.EmployeeRepository,
	notificationService notification.Service,
	defaults company.Defaults,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		tx:                  tx,
		attemptRepo:         attemptRepo,
		sessionRepo:         sessionRepo,
		companyRepo:         companyRepo,
		employeeRepo:        employeeRepo,
		notificationService: notificationService,
		defaults:            defaults,
		now:                 time.Now,
	}
}

// staffIdentity returns the caller and their employee ID, which self-service operations need.
func staffIdentity(ctx context.Context) (jwt.Identity, string, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return jwt.Identity{}, "", err
	}
	if !user.HasPermission(identity.Role, user.PermissionAttendanceRecord) {
		return jwt.Identity{}, "", user.ErrInsufficientPermissions
	}
	if identity.EmployeeID == nil || *identity.EmployeeID == "" {
		return jwt.Identity{}, "", employee.ErrEmployeeRequired
	}
	return identity, *identity.EmployeeID, nil
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func mapSessionToResponse(cs attendance.ClockSession) attendance.SessionResponse {
	return attendance.SessionResponse{
		ID:           cs.ID,
		EmployeeID:   cs.EmployeeID,
		EmployeeName: cs.EmployeeName,
		WorkDate:     formatDate(cs.WorkDate),
		ClockInAt:    cs.ClockInAt,
		ClockOutAt:   cs.ClockOutAt,
		IsLate:       cs.IsLate,
		Source:       string(cs.Source),
		AttemptID:    cs.AttemptID,
	}
}

func mapAttemptToResponse(a attendance.Attempt) attendance.AttemptResponse {
	resp := attendance.AttemptResponse{
		AttemptID:      a.ID,
		EmployeeID:     a.EmployeeID,
		Verified:       a.Verified,
		Outcome:        string(a.Outcome),
		DistanceMeters: attendance.FiniteDistance(a.DistanceMeters),
		RadiusMeters:   a.RadiusMeters,
		AttemptedAt:    a.AttemptedAt,
		WorkDate:       formatDate(a.WorkDate),
	}
	if a.LocationUnavailable {
		kind := attendance.FailureKindGeofenceUnavailable
		resp.FailureKind = &kind
	}
	return resp
}

// RecordAttempt implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecordAttempt(ctx context.Context, req attendance.RecordAttemptRequest) (attendance.AttemptResponse, error) {
	identity, employeeID, err := staffIdentity(ctx)
	if err != nil {
		return attendance.AttemptResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return attendance.AttemptResponse{}, err
	}

	companyData, err := s.companyRepo.GetByID(ctx, identity.CompanyID)
	if err != nil {
		return attendance.AttemptResponse{}, err
	}
	fence, err := companyData.Fence(s.defaults)
	if err != nil {
		return attendance.AttemptResponse{}, err
	}

	now := s.now().UTC()
	location := req.Location()
	verdict := geofence.Evaluate(location, fence)

	outcome := attendance.OutcomeFailedOutOfRange
	if verdict.Verified {
		outcome = attendance.OutcomeSuccess
	}

	var resp attendance.AttemptResponse
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		emp, err := s.employeeRepo.GetByID(ctx, employeeID, identity.CompanyID)
		if err != nil {
			return err
		}
		if !emp.IsActive() {
			return employee.ErrEmployeeInactive
		}

		attempt := attendance.Attempt{
			CompanyID:           identity.CompanyID,
			EmployeeID:          employeeID,
			AttemptedAt:         now,
			WorkDate:            companyData.WorkDate(now, s.defaults),
			DistanceMeters:      verdict.DistanceMeters,
			RadiusMeters:        fence.RadiusMeters,
			Verified:            verdict.Verified,
			Outcome:             outcome,
			LocationUnavailable: verdict.Unavailable,
		}
		if location != nil {
			lat, lng := location.Latitude, location.Longitude
			attempt.SubmittedLat, attempt.SubmittedLng = &lat, &lng
		}

		attempt, err = s.attemptRepo.Create(ctx, attempt)
		if err != nil {
			return fmt.Errorf("failed to record attempt: %w", err)
		}
		resp = mapAttemptToResponse(attempt)

		if !attempt.Verified {
			return nil
		}

		// A later verified attempt on the same day confirms the session opened by the first.
		session, _, err := s.sessionRepo.CreateIfAbsent(ctx, attendance.ClockSession{
			CompanyID:  identity.CompanyID,
			EmployeeID: employeeID,
			WorkDate:   attempt.WorkDate,
			ClockInAt:  attempt.AttemptedAt,
			IsLate:     companyData.IsLate(attempt.AttemptedAt, s.defaults),
			Source:     attendance.SessionSourceGeofence,
			AttemptID:  &attempt.ID,
		})
		if err != nil {
			return fmt.Errorf("failed to open clock session: %w", err)
		}
		sessionResp := mapSessionToResponse(session)
		resp.Session = &sessionResp
		return nil
	})
	if err != nil {
		return attendance.AttemptResponse{}, err
	}

	label := string(outcome)
	if verdict.Unavailable {
		label = "UNAVAILABLE"
	}
	metrics.AttendanceAttemptsTotal.WithLabelValues(label).Inc()

	return resp, nil
}

// ClockOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockOut(ctx context.Context) (attendance.SessionResponse, error) {
	identity, employeeID, err := staffIdentity(ctx)
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	companyData, err := s.companyRepo.GetByID(ctx, identity.CompanyID)
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	now := s.now().UTC()
	workDate := companyData.WorkDate(now, s.defaults)

	var resp attendance.SessionResponse
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		session, err := s.sessionRepo.GetByEmployeeAndDate(ctx, employeeID, workDate, identity.CompanyID)
		if err != nil {
			if errors.Is(err, attendance.ErrSessionNotFound) {
				return attendance.ErrNoOpenSession
			}
			return err
		}
		if session.ClockOutAt != nil {
			return attendance.ErrAlreadyClockedOut
		}

		updated, err := s.sessionRepo.UpdateClockOut(ctx, session.ID, now, identity.CompanyID)
		if err != nil {
			return err
		}
		resp = mapSessionToResponse(updated)
		return nil
	})
	if err != nil {
		return attendance.SessionResponse{}, err
	}
	return resp, nil
}

// scopeToSelf pins the filter to the caller unless they may view the whole company.
func scopeToSelf(identity jwt.Identity, employeeID **string) error {
	if user.HasPermission(identity.Role, user.PermissionAttendanceViewAll) {
		return nil
	}
	if identity.EmployeeID == nil {
		return employee.ErrEmployeeRequired
	}
	own := *identity.EmployeeID
	*employeeID = &own
	return nil
}

// ListAttempts implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAttempts(ctx context.Context, filter attendance.AttemptFilter) (attendance.ListAttemptResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return attendance.ListAttemptResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return attendance.ListAttemptResponse{}, err
	}
	if err := scopeToSelf(identity, &filter.EmployeeID); err != nil {
		return attendance.ListAttemptResponse{}, err
	}

	attempts, total, err := s.attemptRepo.List(ctx, filter, identity.CompanyID)
	if err != nil {
		return attendance.ListAttemptResponse{}, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]attendance.AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		responses = append(responses, mapAttemptToResponse(a))
	}
	return attendance.ListAttemptResponse{
		Attempts:   responses,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// ListSessions implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListSessions(ctx context.Context, filter attendance.SessionFilter) (attendance.ListSessionResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return attendance.ListSessionResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return attendance.ListSessionResponse{}, err
	}
	if err := scopeToSelf(identity, &filter.EmployeeID); err != nil {
		return attendance.ListSessionResponse{}, err
	}

	sessions, total, err := s.sessionRepo.List(ctx, filter, identity.CompanyID)
	if err != nil {
		return attendance.ListSessionResponse{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	responses := make([]attendance.SessionResponse, 0, len(sessions))
	for _, cs := range sessions {
		responses = append(responses, mapSessionToResponse(cs))
	}
	return attendance.ListSessionResponse{
		Sessions:   responses,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// CloseStaleSessions stamps 23:59:59 company-local time on sessions whose work day has ended.
// It runs without a caller identity and spans every company.
func (s *AttendanceServiceImpl) CloseStaleSessions(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// Zones ahead of UTC may already have finished today, so include it.
	candidates, err := s.sessionRepo.ListStaleOpen(ctx, today.AddDate(0, 0, 1), staleCloseBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale sessions: %w", err)
	}

	companies := make(map[string]company.Company)
	var closed []attendance.ClockSession
	for _, cs := range candidates {
		c, ok := companies[cs.CompanyID]
		if !ok {
			if c, err = s.companyRepo.GetByID(ctx, cs.CompanyID); err != nil {
				logging.L(ctx).Warn("skipping stale session, company lookup failed",
					"session_id", cs.ID, "company_id", cs.CompanyID, "error", err)
				continue
			}
			companies[cs.CompanyID] = c
		}

		loc := c.Location(s.defaults)
		endOfDay := time.Date(cs.WorkDate.Year(), cs.WorkDate.Month(), cs.WorkDate.Day(), 23, 59, 59, 0, loc)
		if !now.After(endOfDay) {
			continue
		}

		updated, err := s.sessionRepo.UpdateClockOut(ctx, cs.ID, endOfDay.UTC(), cs.CompanyID)
		if err != nil {
			if errors.Is(err, attendance.ErrAlreadyClockedOut) {
				continue
			}
			return len(closed), fmt.Errorf("failed to close session %s: %w", cs.ID, err)
		}
		closed = append(closed, updated)
	}

	s.notifyAutoClosed(ctx, closed)
	return len(closed), nil
}

func (s *AttendanceServiceImpl) notifyAutoClosed(ctx context.Context, sessions []attendance.ClockSession) {
	if s.notificationService == nil || len(sessions) == 0 {
		return
	}
	reqs := make([]notification.CreateNotificationRequest, 0, len(sessions))
	for _, cs := range sessions {
		emp, err := s.employeeRepo.GetByID(ctx, cs.EmployeeID, cs.CompanyID)
		if err != nil || emp.UserID == nil {
			continue
		}
		reqs = append(reqs, notification.CreateNotificationRequest{
			CompanyID:   cs.CompanyID,
			RecipientID: *emp.UserID,
			Type:        notification.TypeSessionAutoClosed,
			Title:       "Session closed automatically",
			Message:     fmt.Sprintf("You did not clock out on %s. The session was closed at the end of the day.", formatDate(cs.WorkDate)),
			Data: map[string]interface{}{
				"session_id": cs.ID,
				"work_date":  formatDate(cs.WorkDate),
			},
		})
	}
	_ = s.notificationService.QueueBulkNotification(ctx, reqs)
}
