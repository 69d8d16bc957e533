// Package memory is an in-memory backend for development and tests. Every repository of the
// service shares one Store; units of work are serialized and rolled back on error.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/google/uuid"
)

type state struct {
	companies     map[string]company.Company
	users         map[string]user.User
	employees     map[string]employee.Employee
	attempts      map[string]attendance.Attempt
	sessions      map[string]attendance.ClockSession
	approvals     map[string]approval.Item
	settings      map[string]payroll.Settings        // by company
	structures    map[string]payroll.SalaryStructure // by company + employee
	runs          map[string]payroll.Run
	runItems      map[string][]payroll.Item // by run
	notifications map[string]notification.Notification
}

func newState() state {
	return state{
		companies:     make(map[string]company.Company),
		users:         make(map[string]user.User),
		employees:     make(map[string]employee.Employee),
		attempts:      make(map[string]attendance.Attempt),
		sessions:      make(map[string]attendance.ClockSession),
		approvals:     make(map[string]approval.Item),
		settings:      make(map[string]payroll.Settings),
		structures:    make(map[string]payroll.SalaryStructure),
		runs:          make(map[string]payroll.Run),
		runItems:      make(map[string][]payroll.Item),
		notifications: make(map[string]notification.Notification),
	}
}

// clone copies the maps. Values are never mutated in place, so sharing them is safe.
func (s state) clone() state {
	return state{
		companies:     maps.Clone(s.companies),
		users:         maps.Clone(s.users),
		employees:     maps.Clone(s.employees),
		attempts:      maps.Clone(s.attempts),
		sessions:      maps.Clone(s.sessions),
		approvals:     maps.Clone(s.approvals),
		settings:      maps.Clone(s.settings),
		structures:    maps.Clone(s.structures),
		runs:          maps.Clone(s.runs),
		runItems:      maps.Clone(s.runItems),
		notifications: maps.Clone(s.notifications),
	}
}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

type txKey struct{}

// TxManager serializes units of work. A nested call joins the outer unit.
type TxManager struct {
	store *Store
}

func NewTxManager(store *Store) database.TxManager {
	return &TxManager{store: store}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	m.store.mu.RLock()
	snapshot := m.store.data.clone()
	m.store.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.store.mu.Lock()
		m.store.data = snapshot
		m.store.mu.Unlock()
		return err
	}
	return nil
}

// WithinSnapshot is WithinTx: units never interleave, so every read is consistent.
func (m *TxManager) WithinSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.WithinTx(ctx, fn)
}

func newID() string {
	return uuid.New().String()
}

func paginate[T any](list []T, page, limit int) []T {
	if limit <= 0 {
		return list
	}
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start >= len(list) {
		return []T{}
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

func inRange(day, from, to time.Time) bool {
	return !day.Before(from) && !day.After(to)
}

func parseDay(s *string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *Store) employeeName(id string) *string {
	if e, ok := s.data.employees[id]; ok {
		name := e.FullName
		return &name
	}
	return nil
}

func sortByTimeDesc[T any](list []T, at func(T) time.Time, id func(T) string) {
	sort.Slice(list, func(i, j int) bool {
		a, b := at(list[i]), at(list[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return id(list[i]) > id(list[j])
	})
}
