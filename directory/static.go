package directory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xraph/payroll"
)

var (
	_ Directory = (*Static)(nil)
	_ Salaries  = (*Static)(nil)
)

// File is the on-disk layout of a static directory.
//
//	users:
//	  - {id: 1, username: ana, email: ana@example.com, roles: [manager]}
//	employees:
//	  - {id: 10, code: E010, first_name: Ion, last_name: Pop, email: ion@example.com, manager_id: 1}
//	salaries:
//	  - {employee_id: 10, month: 2026-03-01, base_salary: 650000, working_days: 21, total: 650000}
type File struct {
	Users     []*User     `yaml:"users"`
	Employees []*Employee `yaml:"employees"`
	Salaries  []*Salary   `yaml:"salaries"`
}

// Static is an immutable in-memory directory, usually loaded from YAML.
// It serves development setups and tests.
type Static struct {
	users     map[int64]*User
	employees map[int64]*Employee
	byManager map[int64][]*Employee
	salaries  map[string]*Salary
}

func salaryKey(employeeID int64, period time.Time) string {
	return fmt.Sprintf("%d@%s", employeeID, MonthOf(period).Format("2006-01"))
}

// NewStatic indexes f.
func NewStatic(f File) *Static {
	s := &Static{
		users:     make(map[int64]*User, len(f.Users)),
		employees: make(map[int64]*Employee, len(f.Employees)),
		byManager: make(map[int64][]*Employee),
		salaries:  make(map[string]*Salary, len(f.Salaries)),
	}
	for _, u := range f.Users {
		s.users[u.ID] = u
	}
	for _, e := range f.Employees {
		s.employees[e.ID] = e
		s.byManager[e.ManagerID] = append(s.byManager[e.ManagerID], e)
	}
	for _, m := range s.byManager {
		sort.Slice(m, func(i, j int) bool { return m[i].ID < m[j].ID })
	}
	for _, sal := range f.Salaries {
		s.salaries[salaryKey(sal.EmployeeID, sal.Month)] = sal
	}
	return s
}

// Parse decodes a YAML directory document.
func Parse(data []byte) (*Static, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("payroll/directory: parse: %w", err)
	}
	return NewStatic(f), nil
}

// Load reads and parses the YAML directory at path.
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("payroll/directory: load %s: %w", path, err)
	}
	return Parse(data)
}

// EmployeesOf returns managerID's employees ordered by ID.
func (s *Static) EmployeesOf(_ context.Context, managerID int64) ([]*Employee, error) {
	emps := s.byManager[managerID]
	out := make([]*Employee, len(emps))
	for i, e := range emps {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// Employee returns one employee.
func (s *Static) Employee(_ context.Context, employeeID int64) (*Employee, error) {
	e, ok := s.employees[employeeID]
	if !ok {
		return nil, payroll.ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

// User returns one user.
func (s *Static) User(_ context.Context, userID int64) (*User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, payroll.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// UsersByRole returns users carrying role ordered by ID.
func (s *Static) UsersByRole(_ context.Context, role string) ([]*User, error) {
	var out []*User
	for _, u := range s.users {
		if u.HasRole(role) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Salary returns the record for employeeID in period's month.
func (s *Static) Salary(_ context.Context, employeeID int64, period time.Time) (*Salary, error) {
	sal, ok := s.salaries[salaryKey(employeeID, period)]
	if !ok {
		return nil, ErrNoSalary
	}
	cp := *sal
	return &cp, nil
}
