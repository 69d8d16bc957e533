package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
)

type AttendanceJobs struct {
	attendanceService attendance.AttendanceService
	interval          time.Duration
	now               func() time.Time
}

func NewAttendanceJobs(attendanceService attendance.AttendanceService, interval time.Duration) *AttendanceJobs {
	if interval <= 0 {
		interval = time.Hour
	}
	return &AttendanceJobs{
		attendanceService: attendanceService,
		interval:          interval,
		now:               time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("auto_close_stale_sessions", j.interval, j.AutoCloseStaleSessions)
}

// AutoCloseStaleSessions closes sessions whose company-local work day has ended.
// Every run is safe to repeat; already closed sessions are skipped.
func (j *AttendanceJobs) AutoCloseStaleSessions(ctx context.Context) error {
	closed, err := j.attendanceService.CloseStaleSessions(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to close stale sessions: %w", err)
	}
	if closed > 0 {
		logging.L(ctx).Info("Cron: auto-closed stale sessions", "count", closed)
	}
	return nil
}
