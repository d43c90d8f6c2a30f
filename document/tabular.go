package document

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/directory"
)

const reasonNoSalary = "Salary slip not found for this month"

var _ Builder = (*Tabular)(nil)

// Tabular renders slips as aligned plain text and reports as CSV.
type Tabular struct {
	salaries directory.Salaries
	company  string
}

// NewTabular creates a Tabular builder reading salaries from s.
func NewTabular(s directory.Salaries, company string) *Tabular {
	return &Tabular{salaries: s, company: company}
}

func (t *Tabular) salary(ctx context.Context, e *directory.Employee, period time.Time) (*directory.Salary, error) {
	sal, err := t.salaries.Salary(ctx, e.ID, period)
	if errors.Is(err, directory.ErrNoSalary) {
		return nil, NewValidationError(e.Code, reasonNoSalary, err)
	}
	return sal, err
}

// BuildSlip renders one slip.
func (t *Tabular) BuildSlip(ctx context.Context, e *directory.Employee, period time.Time) (*Document, error) {
	sal, err := t.salary(ctx, e, period)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\nSalary Slip\n\n", t.company)

	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Name", e.FullName()},
		{"Employee ID", e.Code},
		{"Email", e.Email},
		{"Month", sal.Month.Format("January 2006")},
		{"Working Days", strconv.Itoa(sal.WorkingDays)},
		{"Vacation Days", strconv.Itoa(sal.VacationDays)},
		{"Additional Bonuses", sal.Bonuses.String()},
		{"Base Salary", sal.BaseSalary.String()},
		{"Net Salary", sal.Total.String()},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s:\t%s\n", r[0], r[1])
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	return &Document{Payload: buf.Bytes(), MediaType: artifact.MediaTypeText}, nil
}

// BuildAggregate renders one CSV row per employee that has a salary
// record. Employees without one are skipped; if none has a record the
// report is a ValidationError.
func (t *Tabular) BuildAggregate(ctx context.Context, employees []*directory.Employee, period time.Time) (*Document, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Employee name", "Salary to be paid", "Working days", "Vacation days", "Bonuses"})

	rows := 0
	for _, e := range employees {
		sal, err := t.salary(ctx, e, period)
		if IsValidation(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		_ = w.Write([]string{
			e.FullName(),
			sal.Total.String(),
			strconv.Itoa(sal.WorkingDays),
			strconv.Itoa(sal.VacationDays),
			sal.Bonuses.String(),
		})
		rows++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, NewValidationError("", "No salary records found for this month.", directory.ErrNoSalary)
	}

	return &Document{Payload: buf.Bytes(), MediaType: artifact.MediaTypeCSV}, nil
}
