package cron

import (
	"time"

	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/run"
)

// Entry is a periodic generation schedule. Each firing starts Operation
// once for every manager.
type Entry struct {
	ID        id.ScheduleID `json:"id"`
	Name      string        `json:"name"`
	Schedule  string        `json:"schedule"`
	Operation run.Operation `json:"operation"`
	Enabled   bool          `json:"enabled"`
	LastRunAt *time.Time    `json:"last_run_at,omitempty"`
	NextRunAt *time.Time    `json:"next_run_at,omitempty"`
}

// FireReport summarizes one firing of an entry.
type FireReport struct {
	Entry string `json:"entry"`
	Key   string `json:"key"`
	// Started counts managers whose run was admitted.
	Started int `json:"started"`
	// Skipped counts managers already handled for this period.
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
