package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/directory"
)

// The directory tables are maintained by the HR system; the pipeline only
// reads them.

const employeeColumns = `id, code, first_name, last_name, email, cnp, position, department, manager_id`

// EmployeesOf returns the employees managed by managerID, ordered by ID.
func (s *Store) EmployeesOf(ctx context.Context, managerID int64) ([]*directory.Employee, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM payroll_employees WHERE manager_id = $1 ORDER BY id`,
		managerID,
	)
	if err != nil {
		return nil, fmt.Errorf("payroll/postgres: employees of %d: %w", managerID, err)
	}
	defer rows.Close()

	var out []*directory.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("payroll/postgres: scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Employee returns one employee.
func (s *Store) Employee(ctx context.Context, employeeID int64) (*directory.Employee, error) {
	e, err := scanEmployee(s.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM payroll_employees WHERE id = $1`, employeeID))
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("payroll/postgres: get employee: %w", err)
	}
	return e, nil
}

// User returns one user.
func (s *Store) User(ctx context.Context, userID int64) (*directory.User, error) {
	var u directory.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, roles FROM payroll_users WHERE id = $1`, userID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Roles)
	if err != nil {
		if isNoRows(err) {
			return nil, payroll.ErrUserNotFound
		}
		return nil, fmt.Errorf("payroll/postgres: get user: %w", err)
	}
	return &u, nil
}

// UsersByRole returns the users holding role, ignoring case, ordered by ID.
func (s *Store) UsersByRole(ctx context.Context, role string) ([]*directory.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, email, roles FROM payroll_users
		WHERE EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE lower(r) = lower($1))
		ORDER BY id`, role)
	if err != nil {
		return nil, fmt.Errorf("payroll/postgres: users by role: %w", err)
	}
	defer rows.Close()

	var out []*directory.User
	for rows.Next() {
		var u directory.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Roles); err != nil {
			return nil, fmt.Errorf("payroll/postgres: scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// Salary returns the record for employeeID in period's month.
func (s *Store) Salary(ctx context.Context, employeeID int64, period time.Time) (*directory.Salary, error) {
	sal := directory.Salary{EmployeeID: employeeID}
	var base, bonuses, total int64
	err := s.pool.QueryRow(ctx, `
		SELECT month, base_salary, working_days, vacation_days, bonuses, total
		FROM payroll_salaries WHERE employee_id = $1 AND month = $2`,
		employeeID, directory.MonthOf(period),
	).Scan(&sal.Month, &base, &sal.WorkingDays, &sal.VacationDays, &bonuses, &total)
	if err != nil {
		if isNoRows(err) {
			return nil, directory.ErrNoSalary
		}
		return nil, fmt.Errorf("payroll/postgres: get salary: %w", err)
	}
	sal.BaseSalary = directory.Money(base)
	sal.Bonuses = directory.Money(bonuses)
	sal.Total = directory.Money(total)
	return &sal, nil
}

func scanEmployee(row pgx.Row) (*directory.Employee, error) {
	var e directory.Employee
	err := row.Scan(&e.ID, &e.Code, &e.FirstName, &e.LastName, &e.Email, &e.CNP, &e.Position, &e.Department, &e.ManagerID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
