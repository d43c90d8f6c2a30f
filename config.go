package payroll

import "time"

// Config holds configuration for the payroll pipeline.
type Config struct {
	// Concurrency is the maximum number of employees built or recipients
	// dispatched concurrently within one operation.
	Concurrency int

	// SendTimeout bounds a single outbound send. A timed out send is a
	// failed outcome for that recipient and is not retried.
	SendTimeout time.Duration

	// OperationTimeout bounds a whole pipeline operation. Zero disables it.
	OperationTimeout time.Duration

	// CacheTTL is how long a completed operation result is served from the
	// result cache for an identical retry.
	CacheTTL time.Duration

	// KeyRetention is how long an accepted idempotency key is remembered.
	// Zero retains keys forever.
	KeyRetention time.Duration

	// SendRate caps outbound sends per second across one operation. Zero
	// disables rate limiting.
	SendRate float64

	// ReportRoles lists the user roles that receive aggregate reports in
	// addition to the manager who owns them.
	ReportRoles []string

	// SlipSchedule and ReportSchedule are cron expressions for periodic
	// slip and report generation. An empty expression disables the entry.
	SlipSchedule   string
	ReportSchedule string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:  4,
		SendTimeout:  30 * time.Second,
		CacheTTL:     1 * time.Hour,
		KeyRetention: 0,
		ReportRoles:  []string{"hr"},

		// First day of the month, early morning.
		SlipSchedule:   "0 6 1 * *",
		ReportSchedule: "30 6 1 * *",
	}
}
