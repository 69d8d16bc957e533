package memory

import (
	"context"
	"slices"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
)

type approvalRepository struct{ s *Store }

func NewApprovalRepository(s *Store) approval.ItemRepository {
	return &approvalRepository{s: s}
}

func (r *approvalRepository) withName(it approval.Item) approval.Item {
	it.EmployeeName = r.s.employeeName(it.EmployeeID)
	return it
}

func (r *approvalRepository) Create(ctx context.Context, it approval.Item) (approval.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.approvals {
		if existing.CompanyID == it.CompanyID && existing.Kind == it.Kind && existing.SubjectID == it.SubjectID {
			return approval.Item{}, approval.ErrDuplicateSubject
		}
	}
	if it.ID == "" {
		it.ID = newID()
	}
	now := r.s.now()
	it.CreatedAt, it.UpdatedAt = now, now
	it.EmployeeName = nil
	r.s.data.approvals[it.ID] = it
	return r.withName(it), nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id string, companyID string) (approval.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	it, ok := r.s.data.approvals[id]
	if !ok || it.CompanyID != companyID {
		return approval.Item{}, approval.ErrItemNotFound
	}
	return r.withName(it), nil
}

func (r *approvalRepository) GetByIDForUpdate(ctx context.Context, id string, companyID string) (approval.Item, error) {
	return r.GetByID(ctx, id, companyID)
}

func (r *approvalRepository) ExistsForSubject(ctx context.Context, kind approval.Kind, subjectID string, companyID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, it := range r.s.data.approvals {
		if it.CompanyID == companyID && it.Kind == kind && it.SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (r *approvalRepository) SaveDecision(ctx context.Context, it approval.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.approvals[it.ID]
	if !ok || stored.CompanyID != it.CompanyID {
		return approval.ErrItemNotFound
	}
	if stored.Status != approval.StatusPending {
		return approval.ErrAlreadyDecided
	}
	stored.Status = it.Status
	stored.DecisionNote = it.DecisionNote
	stored.DecidedBy = it.DecidedBy
	stored.DecidedAt = it.DecidedAt
	stored.UpdatedAt = it.UpdatedAt
	r.s.data.approvals[it.ID] = stored
	return nil
}

func (r *approvalRepository) List(ctx context.Context, filter approval.ItemFilter, companyID string) ([]approval.Item, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []approval.Item
	for _, it := range r.s.data.approvals {
		if it.CompanyID != companyID {
			continue
		}
		if filter.Kind != nil && string(it.Kind) != *filter.Kind {
			continue
		}
		if filter.Status != nil && string(it.Status) != *filter.Status {
			continue
		}
		if filter.EmployeeID != nil && it.EmployeeID != *filter.EmployeeID {
			continue
		}
		out = append(out, r.withName(it))
	}
	sortByTimeDesc(out, func(it approval.Item) time.Time { return it.CreatedAt }, func(it approval.Item) string { return it.ID })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r *approvalRepository) ListDisputesInPeriod(ctx context.Context, companyID string, from, to time.Time, statuses []approval.Status) ([]approval.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []approval.Item
	for _, it := range r.s.data.approvals {
		if it.CompanyID != companyID || it.Kind != approval.KindAttendanceDispute || it.SubjectDate == nil {
			continue
		}
		if !inRange(*it.SubjectDate, from, to) || !slices.Contains(statuses, it.Status) {
			continue
		}
		out = append(out, r.withName(it))
	}
	sortByTimeDesc(out, func(it approval.Item) time.Time { return it.CreatedAt }, func(it approval.Item) string { return it.ID })
	slices.Reverse(out)
	return out, nil
}
