package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tx := NewTxManager(store)
	companies := NewCompanyRepository(store)

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := companies.Create(ctx, company.Company{ID: "co-1", Username: "acme"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = companies.GetByID(ctx, "co-1")
	assert.ErrorIs(t, err, company.ErrCompanyNotFound)
}

func TestTxManager_NestedCallJoins(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tx := NewTxManager(store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tx.WithinTx(ctx, func(ctx context.Context) error {
			return tx.WithinSnapshot(ctx, func(ctx context.Context) error { return nil })
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested unit of work deadlocked")
	}
}

func TestTxManager_Serializes(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tx := NewTxManager(store)
	runs := NewPayrollRepository(store)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- tx.WithinTx(ctx, func(ctx context.Context) error {
				_, err := runs.CreateRun(ctx, payroll.Run{CompanyID: "co-1", Month: 3, Year: 2025, Status: payroll.RunStatusDraft})
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)

	ok, dup := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, payroll.ErrDuplicateRun):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, dup)
}

func TestSessionRepository_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(NewStore())
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	first, created, err := repo.CreateIfAbsent(ctx, attendance.ClockSession{CompanyID: "co", EmployeeID: "e", WorkDate: day, Source: attendance.SessionSourceGeofence})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.CreateIfAbsent(ctx, attendance.ClockSession{CompanyID: "co", EmployeeID: "e", WorkDate: day, Source: attendance.SessionSourceDisputeOverride})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, attendance.SessionSourceGeofence, second.Source)

	sum, err := repo.SummarizePeriod(ctx, "co", day.AddDate(0, 0, -3), day)
	require.NoError(t, err)
	assert.Equal(t, 1, sum["e"].DaysPresent)
}

func TestApprovalRepository_SaveDecisionGuardsPending(t *testing.T) {
	ctx := context.Background()
	repo := NewApprovalRepository(NewStore())

	it, err := repo.Create(ctx, approval.Item{CompanyID: "co", Kind: approval.KindAttendanceDispute, SubjectID: "att-1", EmployeeID: "e", Status: approval.StatusPending})
	require.NoError(t, err)

	_, err = repo.Create(ctx, approval.Item{CompanyID: "co", Kind: approval.KindAttendanceDispute, SubjectID: "att-1", EmployeeID: "e", Status: approval.StatusPending})
	assert.ErrorIs(t, err, approval.ErrDuplicateSubject)

	it.Status = approval.StatusApproved
	require.NoError(t, repo.SaveDecision(ctx, it))
	assert.ErrorIs(t, repo.SaveDecision(ctx, it), approval.ErrAlreadyDecided)

	_, err = repo.GetByID(ctx, it.ID, "other-co")
	assert.ErrorIs(t, err, approval.ErrItemNotFound)
}
