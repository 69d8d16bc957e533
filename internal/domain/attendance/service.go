package attendance

import (
	"context"
	"time"
)

// AttendanceService defines business logic for attendance operations
type AttendanceService interface {
	// RecordAttempt evaluates the geofence, appends the attempt and opens today's session on success
	RecordAttempt(ctx context.Context, req RecordAttemptRequest) (AttemptResponse, error)

	// ClockOut closes the caller's open session for today
	ClockOut(ctx context.Context) (SessionResponse, error)

	ListAttempts(ctx context.Context, filter AttemptFilter) (ListAttemptResponse, error)

	ListSessions(ctx context.Context, filter SessionFilter) (ListSessionResponse, error)

	// CloseStaleSessions stamps a clock-out on sessions left open past their work day
	CloseStaleSessions(ctx context.Context, now time.Time) (int, error)
}
