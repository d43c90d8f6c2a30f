package pipeline

import (
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/run"
)

// Status classifies an operation outcome.
type Status string

const (
	// StatusOK means the operation ran; per-recipient errors may still be
	// listed in the body.
	StatusOK Status = "ok"
	// StatusNotFound means there was nothing to operate on: no employees,
	// no recipients or no archived report.
	StatusNotFound Status = "not_found"
	// StatusFailed means a resource failure aborted the operation.
	StatusFailed Status = "failed"
)

// Outcome is the result of one operation call.
type Outcome struct {
	RunID     id.RunID
	Operation run.Operation
	Status    Status
	// Body is the JSON response. A replayed outcome carries the exact
	// bytes of the original run.
	Body []byte
	// Cached is true when Body came from the result cache.
	Cached bool
	// Err is the cause of a StatusFailed outcome. It is not cached.
	Err error
	// Run is the record of this call, including its state history.
	Run *run.Run
}

// Messages surfaced in result bodies.
const (
	msgNoEmployees      = "No employees found for this manager."
	msgNoArchivedReport = "No archived report found."
	msgNoReportTargets  = "No recipients found for the report."
)

// AggregateResult is the body of CreateAggregateReport and
// SendAggregateReport.
type AggregateResult struct {
	Sent     int      `json:"sent"`
	Total    int      `json:"total,omitempty"`
	Errors   []string `json:"errors"`
	Artifact string   `json:"artifact,omitempty"`
}

// Generated names the artifact archived for one recipient.
type Generated struct {
	Recipient string `json:"recipient"`
	Artifact  string `json:"artifact"`
}

// RecipientError is one itemized failure.
type RecipientError struct {
	Recipient string `json:"recipient,omitempty"`
	Error     string `json:"error"`
}

// IndividualResult is the body of CreateIndividualDocuments.
type IndividualResult struct {
	Generated []Generated      `json:"generated"`
	Errors    []RecipientError `json:"errors"`
}

// SendResult is the body of SendIndividualDocuments.
type SendResult struct {
	Sent   int              `json:"sent"`
	Total  int              `json:"total"`
	Errors []RecipientError `json:"errors"`
}

// failureBody renders the body of an operation aborted by err.
func failureBody(op run.Operation, err error) any {
	switch op {
	case run.OpCreateIndividualDocuments:
		return IndividualResult{Generated: []Generated{}, Errors: []RecipientError{{Error: err.Error()}}}
	case run.OpSendIndividualDocuments:
		return SendResult{Errors: []RecipientError{{Error: err.Error()}}}
	default:
		return AggregateResult{Errors: []string{err.Error()}}
	}
}
