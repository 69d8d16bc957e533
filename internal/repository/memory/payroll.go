package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/money"
)

type payrollRepository struct{ s *Store }

func NewPayrollRepository(s *Store) payroll.PayrollRepository {
	return &payrollRepository{s: s}
}

func structureKey(companyID, employeeID string) string {
	return companyID + "/" + employeeID
}

// ========== SETTINGS ==========

func (r *payrollRepository) GetSettings(ctx context.Context, companyID string) (payroll.Settings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if st, ok := r.s.data.settings[companyID]; ok {
		return st, nil
	}
	return payroll.Settings{CompanyID: companyID}, nil
}

func (r *payrollRepository) UpsertSettings(ctx context.Context, st payroll.Settings) (payroll.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st.UpdatedAt = r.s.now()
	r.s.data.settings[st.CompanyID] = st
	return st, nil
}

// ========== SALARY STRUCTURES ==========

func (r *payrollRepository) UpsertSalaryStructure(ctx context.Context, st payroll.SalaryStructure) (payroll.SalaryStructure, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st.UpdatedAt = r.s.now()
	st.EmployeeName = nil
	r.s.data.structures[structureKey(st.CompanyID, st.EmployeeID)] = st
	st.EmployeeName = r.s.employeeName(st.EmployeeID)
	return st, nil
}

func (r *payrollRepository) GetSalaryStructure(ctx context.Context, employeeID string, companyID string) (payroll.SalaryStructure, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.data.structures[structureKey(companyID, employeeID)]
	if !ok {
		return payroll.SalaryStructure{}, payroll.ErrSalaryStructureNotFound
	}
	st.EmployeeName = r.s.employeeName(st.EmployeeID)
	return st, nil
}

func (r *payrollRepository) ListSalaryStructures(ctx context.Context, companyID string) ([]payroll.SalaryStructure, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []payroll.SalaryStructure
	for _, st := range r.s.data.structures {
		if st.CompanyID == companyID {
			st.EmployeeName = r.s.employeeName(st.EmployeeID)
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// ========== RUNS ==========

func (r *payrollRepository) CreateRun(ctx context.Context, run payroll.Run) (payroll.Run, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.runs {
		if existing.CompanyID == run.CompanyID && existing.Month == run.Month && existing.Year == run.Year {
			return payroll.Run{}, payroll.ErrDuplicateRun
		}
	}
	if run.ID == "" {
		run.ID = newID()
	}
	if run.GeneratedAt.IsZero() {
		run.GeneratedAt = r.s.now()
	}
	r.s.data.runs[run.ID] = run
	return run, nil
}

func (r *payrollRepository) GetRunByID(ctx context.Context, id string, companyID string) (payroll.Run, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	run, ok := r.s.data.runs[id]
	if !ok || run.CompanyID != companyID {
		return payroll.Run{}, payroll.ErrRunNotFound
	}
	return run, nil
}

func (r *payrollRepository) GetRunByIDForUpdate(ctx context.Context, id string, companyID string) (payroll.Run, error) {
	return r.GetRunByID(ctx, id, companyID)
}

func (r *payrollRepository) GetRunByPeriod(ctx context.Context, month, year int, companyID string) (payroll.Run, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, run := range r.s.data.runs {
		if run.CompanyID == companyID && run.Month == month && run.Year == year {
			return run, nil
		}
	}
	return payroll.Run{}, payroll.ErrRunNotFound
}

func (r *payrollRepository) ListRuns(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.Run, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []payroll.Run
	for _, run := range r.s.data.runs {
		if run.CompanyID != companyID {
			continue
		}
		if filter.Year != nil && run.Year != *filter.Year {
			continue
		}
		if filter.Status != nil && string(run.Status) != *filter.Status {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r *payrollRepository) UpdateRunTotals(ctx context.Context, id string, total money.Amount, itemCount int, companyID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.data.runs[id]
	if !ok || run.CompanyID != companyID {
		return payroll.ErrRunNotFound
	}
	run.TotalPayout = total
	run.ItemCount = itemCount
	r.s.data.runs[id] = run
	return nil
}

func (r *payrollRepository) FinalizeRun(ctx context.Context, run payroll.Run) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.runs[run.ID]
	if !ok || stored.CompanyID != run.CompanyID {
		return payroll.ErrRunNotFound
	}
	if stored.Status != payroll.RunStatusDraft {
		return payroll.ErrRunNotDraft
	}
	stored.Status = payroll.RunStatusFinalized
	stored.FinalizedBy = run.FinalizedBy
	stored.FinalizedAt = run.FinalizedAt
	r.s.data.runs[run.ID] = stored
	return nil
}

func (r *payrollRepository) DeleteRun(ctx context.Context, id string, companyID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.data.runs[id]
	if !ok || run.CompanyID != companyID {
		return payroll.ErrRunNotFound
	}
	if run.Status != payroll.RunStatusDraft {
		return payroll.ErrRunNotDraft
	}
	delete(r.s.data.runs, id)
	delete(r.s.data.runItems, id)
	return nil
}

// ========== ITEMS ==========

func (r *payrollRepository) CreateItems(ctx context.Context, items []payroll.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	for _, it := range items {
		if it.ID == "" {
			it.ID = newID()
		}
		it.CreatedAt = now
		it.Flags = slices.Clone(it.Flags)
		r.s.data.runItems[it.RunID] = append(slices.Clone(r.s.data.runItems[it.RunID]), it)
	}
	return nil
}

func (r *payrollRepository) ListItems(ctx context.Context, runID string, companyID string) ([]payroll.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []payroll.Item
	for _, it := range r.s.data.runItems[runID] {
		if it.CompanyID == companyID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeName != out[j].EmployeeName {
			return out[i].EmployeeName < out[j].EmployeeName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
