package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
)

// ========== COMPANY ==========

type companyRepository struct{ s *Store }

func NewCompanyRepository(s *Store) company.CompanyRepository {
	return &companyRepository{s: s}
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (company.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.companies[id]
	if !ok {
		return company.Company{}, company.ErrCompanyNotFound
	}
	return c, nil
}

func (r *companyRepository) Create(ctx context.Context, c company.Company) (company.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.companies {
		if strings.EqualFold(existing.Username, c.Username) {
			return company.Company{}, company.ErrCompanyUsernameExists
		}
	}
	if c.ID == "" {
		c.ID = newID()
	}
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.data.companies[c.ID] = c
	return c, nil
}

func (r *companyRepository) UpdateGeofence(ctx context.Context, id string, req company.UpdateGeofenceRequest) (company.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.companies[id]
	if !ok {
		return company.Company{}, company.ErrCompanyNotFound
	}
	if req.Latitude != nil {
		lat, lng := *req.Latitude, *req.Longitude
		c.Latitude, c.Longitude = &lat, &lng
	}
	if req.RadiusMeters != nil {
		c.RadiusMeters = *req.RadiusMeters
	}
	if req.Timezone != nil {
		c.Timezone = *req.Timezone
	}
	if req.LateCutoff != nil {
		c.LateCutoff = *req.LateCutoff
	}
	c.UpdatedAt = r.s.now()
	r.s.data.companies[id] = c
	return c, nil
}

// ========== USER ==========

type userRepository struct{ s *Store }

func NewUserRepository(s *Store) user.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (r *userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, user.ErrUserEmailExists
		}
	}
	if u.ID == "" {
		u.ID = newID()
	}
	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.data.users[u.ID] = u
	return u, nil
}

func (r *userRepository) ListByRoles(ctx context.Context, companyID string, roles []user.Role) ([]user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []user.User
	for _, u := range r.s.data.users {
		if u.CompanyID == companyID && slices.Contains(roles, u.Role) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// ========== EMPLOYEE ==========

type employeeRepository struct{ s *Store }

func NewEmployeeRepository(s *Store) employee.EmployeeRepository {
	return &employeeRepository{s: s}
}

func (r *employeeRepository) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.data.employees[id]
	if !ok || e.CompanyID != companyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *employeeRepository) Create(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.employees {
		if existing.CompanyID == e.CompanyID && existing.EmployeeCode == e.EmployeeCode {
			return employee.Employee{}, employee.ErrEmployeeCodeExists
		}
	}
	if e.ID == "" {
		e.ID = newID()
	}
	if e.EmploymentStatus == "" {
		e.EmploymentStatus = employee.EmploymentStatusActive
	}
	now := r.s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	r.s.data.employees[e.ID] = e
	return e, nil
}

func (r *employeeRepository) ExistsByCode(ctx context.Context, companyID string, employeeCode string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.data.employees {
		if e.CompanyID == companyID && e.EmployeeCode == employeeCode {
			return true, nil
		}
	}
	return false, nil
}

func (r *employeeRepository) LinkUser(ctx context.Context, id string, userID string, companyID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.employees[id]
	if !ok || e.CompanyID != companyID {
		return employee.ErrEmployeeNotFound
	}
	e.UserID = &userID
	e.UpdatedAt = r.s.now()
	r.s.data.employees[id] = e
	return nil
}

func (r *employeeRepository) GetActiveByCompanyID(ctx context.Context, companyID string) ([]employee.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []employee.Employee
	for _, e := range r.s.data.employees {
		if e.CompanyID == companyID && e.IsActive() {
			out = append(out, e)
		}
	}
	sortEmployees(out)
	return out, nil
}

func (r *employeeRepository) List(ctx context.Context, companyID string, filter employee.EmployeeFilter) ([]employee.Employee, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []employee.Employee
	for _, e := range r.s.data.employees {
		if e.CompanyID != companyID {
			continue
		}
		if filter.Status != nil && string(e.EmploymentStatus) != *filter.Status {
			continue
		}
		out = append(out, e)
	}
	sortEmployees(out)
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func sortEmployees(list []employee.Employee) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].FullName != list[j].FullName {
			return list[i].FullName < list[j].FullName
		}
		return list[i].ID < list[j].ID
	})
}
