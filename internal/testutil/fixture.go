// Package testutil builds service graphs over the in-memory store for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

const JWTSecret = "test-secret-key-for-jwt"

var seq atomic.Int64

func next() int64 { return seq.Add(1) }

var DefaultSettings = company.Defaults{RadiusMeters: 100, LateCutoff: "08:00", Timezone: "UTC"}

type Fixture struct {
	Store         *memory.Store
	Tx            database.TxManager
	Companies     company.CompanyRepository
	Users         user.UserRepository
	Employees     employee.EmployeeRepository
	Attempts      attendance.AttemptRepository
	Sessions      attendance.SessionRepository
	Approvals     approval.ItemRepository
	Payroll       payroll.PayrollRepository
	Notifications notification.Repository
	JWT           jwt.Service
	Notifier      *RecordingNotifier
	Defaults      company.Defaults
}

func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	store := memory.NewStore()
	return &Fixture{
		Store:         store,
		Tx:            memory.NewTxManager(store),
		Companies:     memory.NewCompanyRepository(store),
		Users:         memory.NewUserRepository(store),
		Employees:     memory.NewEmployeeRepository(store),
		Attempts:      memory.NewAttemptRepository(store),
		Sessions:      memory.NewSessionRepository(store),
		Approvals:     memory.NewApprovalRepository(store),
		Payroll:       memory.NewPayrollRepository(store),
		Notifications: memory.NewNotificationRepository(store),
		JWT:           jwt.NewJWTService(JWTSecret, time.Hour),
		Notifier:      &RecordingNotifier{},
		Defaults:      DefaultSettings,
	}
}

// Company creates a company whose geofence is centered on (lat, lng).
func (f *Fixture) Company(t testing.TB, lat, lng, radius float64) company.Company {
	t.Helper()
	c, err := f.Companies.Create(context.Background(), company.Company{
		Name:         "Greenfield Academy",
		Username:     fmt.Sprintf("greenfield-%d", next()),
		Latitude:     &lat,
		Longitude:    &lng,
		RadiusMeters: radius,
		Timezone:     "UTC",
		LateCutoff:   "08:00",
	})
	require.NoError(t, err)
	return c
}

// Member creates an active employee with a linked login of the given role.
func (f *Fixture) Member(t testing.TB, companyID, fullName string, role user.Role) (employee.Employee, user.User) {
	t.Helper()
	ctx := context.Background()
	emp, err := f.Employees.Create(ctx, employee.Employee{
		CompanyID:        companyID,
		EmployeeCode:     fmt.Sprintf("EMP-%03d", next()),
		FullName:         fullName,
		EmploymentStatus: employee.EmploymentStatusActive,
		HireDate:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	employeeID := emp.ID
	u, err := f.Users.Create(ctx, user.User{
		CompanyID:  companyID,
		EmployeeID: &employeeID,
		Email:      fmt.Sprintf("user-%d@example.com", next()),
		Role:       role,
	})
	require.NoError(t, err)
	require.NoError(t, f.Employees.LinkUser(ctx, emp.ID, u.ID, companyID))
	emp.UserID = &u.ID
	return emp, u
}

// As returns a context authenticated as u.
func (f *Fixture) As(t testing.TB, u user.User) context.Context {
	t.Helper()
	ctx, err := f.JWT.ContextWithIdentity(context.Background(), jwt.Identity{
		UserID:     u.ID,
		CompanyID:  u.CompanyID,
		EmployeeID: u.EmployeeID,
		Role:       u.Role,
	})
	require.NoError(t, err)
	return ctx
}

// RecordingNotifier captures queued notifications instead of delivering them.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []notification.CreateNotificationRequest
}

var _ notification.Service = (*RecordingNotifier)(nil)

func (r *RecordingNotifier) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, req)
	return nil
}

func (r *RecordingNotifier) QueueBulkNotification(ctx context.Context, reqs []notification.CreateNotificationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, reqs...)
	return nil
}

// Sent returns the notifications of the given type, in queue order.
func (r *RecordingNotifier) Sent(notifType notification.NotificationType) []notification.CreateNotificationRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.CreateNotificationRequest
	for _, req := range r.sent {
		if req.Type == notifType {
			out = append(out, req)
		}
	}
	return out
}

func (r *RecordingNotifier) List(ctx context.Context, filter notification.ListFilter) (notification.ListResponse, error) {
	return notification.ListResponse{}, nil
}

func (r *RecordingNotifier) MarkRead(ctx context.Context, id string) error {
	return nil
}

func (r *RecordingNotifier) MarkAllRead(ctx context.Context) (int64, error) {
	return 0, nil
}

func (r *RecordingNotifier) Subscribe(ctx context.Context, userID string) (<-chan notification.SSEEvent, func()) {
	ch := make(chan notification.SSEEvent)
	close(ch)
	return ch, func() {}
}

func (r *RecordingNotifier) Stop() {}
