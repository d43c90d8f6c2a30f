package directory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/directory"
)

const fixture = `
users:
  - {id: 1, username: ana, email: ana@example.com, roles: [manager]}
  - {id: 2, username: dan, email: dan@example.com, roles: [HR]}
  - {id: 3, username: eva, email: eva@example.com, roles: [hr, manager]}
employees:
  - {id: 12, code: E012, first_name: Mara, last_name: Ilie, email: mara@example.com, cnp: "2900101123456", manager_id: 1}
  - {id: 10, code: E010, first_name: Ion, last_name: Pop, email: ion@example.com, cnp: "1850101123456", manager_id: 1}
  - {id: 20, code: E020, first_name: Radu, last_name: Stan, email: radu@example.com, manager_id: 3}
salaries:
  - {employee_id: 10, month: 2026-03-01, base_salary: 650000, working_days: 21, vacation_days: 1, bonuses: 25050, total: 675050}
`

func TestParse(t *testing.T) {
	d, err := directory.Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := context.Background()

	emps, err := d.EmployeesOf(ctx, 1)
	if err != nil {
		t.Fatalf("EmployeesOf: %v", err)
	}
	if len(emps) != 2 || emps[0].ID != 10 || emps[1].ID != 12 {
		t.Fatalf("EmployeesOf(1) = %+v, want employees 10 and 12 in order", emps)
	}
	if emps[0].CNP != "1850101123456" {
		t.Errorf("CNP = %q", emps[0].CNP)
	}

	none, _ := d.EmployeesOf(ctx, 99)
	if len(none) != 0 {
		t.Errorf("EmployeesOf(99) = %d employees, want 0", len(none))
	}

	hr, _ := d.UsersByRole(ctx, "hr")
	if len(hr) != 2 || hr[0].ID != 2 || hr[1].ID != 3 {
		t.Errorf("UsersByRole(hr) = %+v", hr)
	}

	if _, err := d.Employee(ctx, 77); !errors.Is(err, payroll.ErrEmployeeNotFound) {
		t.Errorf("Employee(77): got %v", err)
	}
	if _, err := d.User(ctx, 77); !errors.Is(err, payroll.ErrUserNotFound) {
		t.Errorf("User(77): got %v", err)
	}
}

func TestSalary(t *testing.T) {
	d, err := directory.Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := context.Background()
	march := time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC)

	sal, err := d.Salary(ctx, 10, march)
	if err != nil {
		t.Fatalf("Salary: %v", err)
	}
	if sal.Total.String() != "6750.50" {
		t.Errorf("total = %s, want 6750.50", sal.Total)
	}

	if _, err := d.Salary(ctx, 12, march); !errors.Is(err, directory.ErrNoSalary) {
		t.Errorf("Salary(12): got %v, want ErrNoSalary", err)
	}
	if _, err := d.Salary(ctx, 10, march.AddDate(0, 1, 0)); !errors.Is(err, directory.ErrNoSalary) {
		t.Errorf("Salary next month: got %v, want ErrNoSalary", err)
	}
}

func TestMoneyAndMonth(t *testing.T) {
	tests := []struct {
		in   directory.Money
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{123456, "1234.56"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Money(%d) = %q, want %q", int64(tt.in), got, tt.want)
		}
	}

	got := directory.MonthOf(time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC))
	if !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("MonthOf = %v", got)
	}
}
