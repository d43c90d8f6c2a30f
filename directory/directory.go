// Package directory is the read side of the employee and user registry.
// The pipeline consumes it to find who a manager is responsible for, who
// receives reports, and the salary record each document is built from.
// Creating or editing employees is outside this module.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoSalary is returned when an employee has no salary record for the
// requested period. Builders surface it as a validation failure.
var ErrNoSalary = errors.New("payroll: salary record not found for period")

// Employee is a person who receives salary slips.
type Employee struct {
	ID        int64  `json:"id" yaml:"id"`
	Code      string `json:"code" yaml:"code"`
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
	Email     string `json:"email" yaml:"email"`
	// CNP is the national identification number. Renderers that protect
	// slips use it as the document password.
	CNP        string `json:"-" yaml:"cnp"`
	Position   string `json:"position,omitempty" yaml:"position"`
	Department string `json:"department,omitempty" yaml:"department"`
	ManagerID  int64  `json:"manager_id" yaml:"manager_id"`
}

// FullName returns "First Last".
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// User is an account that can invoke operations or receive reports.
type User struct {
	ID       int64    `json:"id" yaml:"id"`
	Username string   `json:"username" yaml:"username"`
	Email    string   `json:"email" yaml:"email"`
	Roles    []string `json:"roles" yaml:"roles"`
}

// HasRole reports whether u carries role, ignoring case.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Money is an amount in minor units (cents).
type Money int64

// String formats m with two decimals.
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}

// Salary is one employee's salary record for a month.
type Salary struct {
	EmployeeID   int64     `json:"employee_id" yaml:"employee_id"`
	Month        time.Time `json:"month" yaml:"month"`
	BaseSalary   Money     `json:"base_salary" yaml:"base_salary"`
	WorkingDays  int       `json:"working_days" yaml:"working_days"`
	VacationDays int       `json:"vacation_days" yaml:"vacation_days"`
	Bonuses      Money     `json:"bonuses" yaml:"bonuses"`
	Total        Money     `json:"total" yaml:"total"`
}

// MonthOf returns the first instant of t's month in UTC. Documents cover
// the period MonthOf(now).
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Directory resolves employees and users.
type Directory interface {
	// EmployeesOf returns the employees managed by managerID. An empty
	// slice is not an error.
	EmployeesOf(ctx context.Context, managerID int64) ([]*Employee, error)

	// Employee returns one employee or payroll.ErrEmployeeNotFound.
	Employee(ctx context.Context, employeeID int64) (*Employee, error)

	// User returns one user or payroll.ErrUserNotFound.
	User(ctx context.Context, userID int64) (*User, error)

	// UsersByRole returns the users carrying role.
	UsersByRole(ctx context.Context, role string) ([]*User, error)
}

// Salaries resolves salary records.
type Salaries interface {
	// Salary returns the record of employeeID for the month starting at
	// period, or ErrNoSalary.
	Salary(ctx context.Context, employeeID int64, period time.Time) (*Salary, error)
}
