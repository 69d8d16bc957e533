package postgresql_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
	"github.com/cmlabs-hris/presence-payroll/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyRepository_UsernameIsUnique(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c, _ := seedEmployee(t, db)

	_, err := postgresql.NewCompanyRepository(db).Create(ctx, company.Company{Name: "Other", Username: "GREENFIELD"})
	assert.ErrorIs(t, err, company.ErrCompanyUsernameExists)

	got, err := postgresql.NewCompanyRepository(db).GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Africa/Lagos", got.Timezone)
}

func TestUserRepository_EmployeeJoin(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c, e := seedEmployee(t, db)
	users := postgresql.NewUserRepository(db)

	u, err := users.Create(ctx, user.User{CompanyID: c.ID, Email: "ada@greenfield.test", PasswordHash: "x", Role: user.RoleStaff})
	require.NoError(t, err)
	require.NoError(t, postgresql.NewEmployeeRepository(db).LinkUser(ctx, e.ID, u.ID, c.ID))

	got, err := users.GetByEmail(ctx, "ADA@greenfield.test")
	require.NoError(t, err)
	require.NotNil(t, got.EmployeeID)
	assert.Equal(t, e.ID, *got.EmployeeID)

	_, err = users.Create(ctx, user.User{CompanyID: c.ID, Email: "Ada@Greenfield.test", PasswordHash: "x", Role: user.RoleStaff})
	assert.ErrorIs(t, err, user.ErrUserEmailExists)

	staff, err := users.ListByRoles(ctx, c.ID, []user.Role{user.RoleStaff})
	require.NoError(t, err)
	assert.Len(t, staff, 1)
}

func TestAttemptRepository_IsAppendOnly(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c, e := seedEmployee(t, db)

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	a, err := postgresql.NewAttemptRepository(db).Create(ctx, attendance.Attempt{
		CompanyID:      c.ID,
		EmployeeID:     e.ID,
		AttemptedAt:    day.Add(7 * time.Hour),
		WorkDate:       day,
		DistanceMeters: 650,
		RadiusMeters:   500,
		Outcome:        attendance.OutcomeFailedOutOfRange,
	})
	require.NoError(t, err)
	assert.True(t, a.WorkDate.Equal(day))

	_, err = db.Exec(ctx, "UPDATE attendance_attempts SET distance_meters = 10 WHERE id = $1", a.ID)
	assert.Error(t, err)
	_, err = db.Exec(ctx, "DELETE FROM attendance_attempts WHERE id = $1", a.ID)
	assert.Error(t, err)

	counts, err := postgresql.NewAttemptRepository(db).CountByEmployee(ctx, c.ID, day, day)
	require.NoError(t, err)
	assert.Equal(t, attendance.AttemptCounts{Total: 1, Failed: 1}, counts[e.ID])
}

func TestSessionRepository_OnePerDayUnderConcurrency(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c, e := seedEmployee(t, db)
	sessions := postgresql.NewSessionRepository(db)

	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]bool{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, ok, err := sessions.CreateIfAbsent(ctx, attendance.ClockSession{
				CompanyID:  c.ID,
				EmployeeID: e.ID,
				WorkDate:   day,
				ClockInAt:  day.Add(time.Duration(7*60+i) * time.Minute),
				Source:     attendance.SessionSourceGeofence,
			})
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			ids[s.ID] = true
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)

	stored, err := sessions.GetByEmployeeAndDate(ctx, e.ID, day, c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EmployeeName)
	assert.Equal(t, "Ada Obi", *stored.EmployeeName)

	_, err = sessions.UpdateClockOut(ctx, stored.ID, day.Add(16*time.Hour), c.ID)
	require.NoError(t, err)
	_, err = sessions.UpdateClockOut(ctx, stored.ID, day.Add(17*time.Hour), c.ID)
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedOut)
}

func TestApprovalRepository_DecisionIsGuarded(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c, e := seedEmployee(t, db)
	items := postgresql.NewApprovalRepository(db)

	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	distance := 650.0
	item, err := items.Create(ctx, approval.Item{
		CompanyID:        c.ID,
		Kind:             approval.KindAttendanceDispute,
		SubjectID:        "attempt-1",
		EmployeeID:       e.ID,
		Reason:           "GPS drift at the gate",
		DistanceDetected: &distance,
		SubjectDate:      &day,
		Status:           approval.StatusPending,
	})
	require.NoError(t, err)

	_, err = items.Create(ctx, approval.Item{
		CompanyID:  c.ID,
		Kind:       approval.KindAttendanceDispute,
		SubjectID:  "attempt-1",
		EmployeeID: e.ID,
		Reason:     "again",
		Status:     approval.StatusPending,
	})
	assert.ErrorIs(t, err, approval.ErrDuplicateSubject)

	decided, err := approval.Transition(item, approval.DecisionApprove, uuid.New().String(), nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, items.SaveDecision(ctx, decided))
	assert.ErrorIs(t, items.SaveDecision(ctx, decided), approval.ErrAlreadyDecided)

	disputes, err := items.ListDisputesInPeriod(ctx, c.ID, day, day.AddDate(0, 0, 27), []approval.Status{approval.StatusApproved})
	require.NoError(t, err)
	require.Len(t, disputes, 1)
	assert.Equal(t, approval.StatusApproved, disputes[0].Status)
}

func TestPayrollRepository_RunLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c, e := seedEmployee(t, db)
	repo := postgresql.NewPayrollRepository(db)

	settings, err := repo.GetSettings(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Zero, settings.LatenessFine)

	newRun := payroll.Run{
		CompanyID:        c.ID,
		Month:            3,
		Year:             2025,
		Status:           payroll.RunStatusDraft,
		DaysInMonth:      31,
		DailyRateDivisor: 31,
		GeneratedAt:      time.Now(),
	}
	run, err := repo.CreateRun(ctx, newRun)
	require.NoError(t, err)

	_, err = repo.CreateRun(ctx, newRun)
	assert.True(t, errors.Is(err, payroll.ErrDuplicateRun))

	require.NoError(t, repo.CreateItems(ctx, []payroll.Item{{
		RunID:        run.ID,
		CompanyID:    c.ID,
		EmployeeID:   e.ID,
		EmployeeName: e.FullName,
		Flags:        []payroll.Flag{payroll.FlagMissingStructure},
	}}))
	require.NoError(t, repo.UpdateRunTotals(ctx, run.ID, 0, 1, c.ID))

	items, err := repo.ListItems(ctx, run.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].HasFlag(payroll.FlagMissingStructure))

	now := time.Now()
	run.FinalizedAt = &now
	require.NoError(t, repo.FinalizeRun(ctx, run))
	assert.ErrorIs(t, repo.FinalizeRun(ctx, run), payroll.ErrRunNotDraft)
	assert.ErrorIs(t, repo.DeleteRun(ctx, run.ID, c.ID), payroll.ErrRunNotDraft)

	got, err := repo.GetRunByPeriod(ctx, 3, 2025, c.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.RunStatusFinalized, got.Status)
	assert.Equal(t, 1, got.ItemCount)
}

func TestNotificationRepository_CopyInsertAndRead(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c, _ := seedEmployee(t, db)
	u, err := postgresql.NewUserRepository(db).Create(ctx, user.User{CompanyID: c.ID, Email: "bursar@greenfield.test", PasswordHash: "x", Role: user.RoleBursar})
	require.NoError(t, err)

	repo := postgresql.NewNotificationRepository(db)
	base := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	batch := []notification.Notification{
		{CompanyID: c.ID, RecipientID: u.ID, Type: notification.TypePayrollFinalized, Title: "March", Message: "finalized", Data: map[string]interface{}{"month": float64(3)}, CreatedAt: base},
		{CompanyID: c.ID, RecipientID: u.ID, Type: notification.TypeSessionAutoClosed, Title: "Auto close", Message: "closed", CreatedAt: base.Add(time.Minute)},
	}
	require.NoError(t, repo.Insert(ctx, batch))
	require.NotEmpty(t, batch[0].ID)

	list, total, err := repo.ListForRecipient(ctx, c.ID, u.ID, notification.ListFilter{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Auto close", list[0].Title)
	assert.Nil(t, list[0].Data)

	require.NoError(t, repo.MarkRead(ctx, c.ID, u.ID, batch[0].ID, base.Add(time.Hour)))
	assert.ErrorIs(t, repo.MarkRead(ctx, c.ID, uuid.NewString(), batch[0].ID, base), notification.ErrNotificationNotFound)

	unread, err := repo.CountUnread(ctx, c.ID, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	updated, err := repo.MarkAllRead(ctx, c.ID, u.ID, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	list, _, err = repo.ListForRecipient(ctx, c.ID, u.ID, notification.ListFilter{Page: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, float64(3), list[0].Data["month"])
	require.NotNil(t, list[0].ReadAt)
	assert.True(t, list[0].ReadAt.Equal(base.Add(time.Hour)))
}
