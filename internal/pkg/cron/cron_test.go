package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAttendance struct {
	attendance.AttendanceService
	calls []time.Time
	err   error
}

func (s *stubAttendance) CloseStaleSessions(ctx context.Context, now time.Time) (int, error) {
	s.calls = append(s.calls, now)
	return len(s.calls), s.err
}

func TestAttendanceJobs_RegisterAndRun(t *testing.T) {
	svc := &stubAttendance{}
	jobs := NewAttendanceJobs(svc, 0)
	fixed := time.Date(2025, 3, 4, 1, 0, 0, 0, time.UTC)
	jobs.now = func() time.Time { return fixed }

	s := NewScheduler(nil)
	jobs.RegisterJobs(s)
	assert.Equal(t, []string{"auto_close_stale_sessions"}, s.Jobs())
	assert.Equal(t, time.Hour, jobs.interval)

	require.NoError(t, s.RunOnce(context.Background()))
	require.Len(t, svc.calls, 1)
	assert.Equal(t, fixed, svc.calls[0])
}

func TestAttendanceJobs_PropagatesFailure(t *testing.T) {
	svc := &stubAttendance{err: errors.New("db down")}
	s := NewScheduler(nil)
	NewAttendanceJobs(svc, time.Minute).RegisterJobs(s)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := NewScheduler(nil)
	s.AddJob("heartbeat", time.Hour, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start(context.Background())
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
	s.Stop()
}

func TestScheduler_RunOnceRecoversPanic(t *testing.T) {
	s := NewScheduler(nil)
	ran := false
	s.AddJob("explodes", time.Hour, func(ctx context.Context) error { panic("nil map") })
	s.AddJob("after", time.Hour, func(ctx context.Context) error {
		ran = true
		return nil
	})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explodes panicked")
	assert.True(t, ran)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler(nil)
	assert.NotPanics(t, s.Stop)
}
