// Package run models one instance of a pipeline operation and the state
// machine it moves through.
//
//	Received → Admitted → {Building → Archiving}* → Dispatching → Completed
//	Received → Rejected
//	Received → CacheHit → Completed
//
// Any non-terminal state may move to Failed. No other backward edge is
// allowed.
package run

import (
	"fmt"
	"time"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/scope"
)

// Operation names a boundary operation.
type Operation string

const (
	// OpCreateAggregateReport builds and archives the manager's salary report.
	OpCreateAggregateReport Operation = "create_aggregate_report"
	// OpCreateIndividualDocuments builds and archives one slip per employee.
	OpCreateIndividualDocuments Operation = "create_individual_documents"
	// OpSendAggregateReport emails the latest archived salary report.
	OpSendAggregateReport Operation = "send_aggregate_report"
	// OpSendIndividualDocuments builds, archives and emails employee slips.
	OpSendIndividualDocuments Operation = "send_individual_documents"
)

// Operations lists every boundary operation.
var Operations = []Operation{
	OpCreateAggregateReport,
	OpCreateIndividualDocuments,
	OpSendAggregateReport,
	OpSendIndividualDocuments,
}

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	for _, known := range Operations {
		if op == known {
			return true
		}
	}
	return false
}

// State is the lifecycle state of a run.
type State string

const (
	StateReceived    State = "received"
	StateAdmitted    State = "admitted"
	StateRejected    State = "rejected"
	StateCacheHit    State = "cache_hit"
	StateBuilding    State = "building"
	StateArchiving   State = "archiving"
	StateDispatching State = "dispatching"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

var transitions = map[State][]State{
	StateReceived:    {StateAdmitted, StateRejected, StateCacheHit, StateFailed},
	StateAdmitted:    {StateBuilding, StateDispatching, StateCompleted, StateFailed},
	StateCacheHit:    {StateCompleted},
	StateBuilding:    {StateArchiving, StateDispatching, StateCompleted, StateFailed},
	StateArchiving:   {StateBuilding, StateDispatching, StateCompleted, StateFailed},
	StateDispatching: {StateCompleted, StateFailed},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateRejected || s == StateFailed
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition records one state change.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Run is one invocation of a boundary operation. A Run is owned by the
// goroutine executing the operation and is not safe for concurrent use.
type Run struct {
	ID          id.RunID     `json:"id"`
	Operation   Operation    `json:"operation"`
	Actor       int64        `json:"actor"`
	Key         string       `json:"key"`
	State       State        `json:"state"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	LastError   string       `json:"last_error,omitempty"`
	History     []Transition `json:"history,omitempty"`
}

// New creates a run in StateReceived.
func New(op Operation, actor int64, key string) *Run {
	return &Run{
		ID:        id.NewRunID(),
		Operation: op,
		Actor:     actor,
		Key:       key,
		State:     StateReceived,
		StartedAt: time.Now().UTC(),
	}
}

// Scope returns the idempotency scope of the run.
func (r *Run) Scope() scope.Scope {
	return scope.New(string(r.Operation), r.Actor)
}

// Advance moves the run to the next state. Moving to the current state is
// a no-op; an illegal edge returns payroll.ErrInvalidState.
func (r *Run) Advance(to State) error {
	if r.State == to {
		return nil
	}
	if !CanTransition(r.State, to) {
		return fmt.Errorf("%w: %s -> %s", payroll.ErrInvalidState, r.State, to)
	}
	now := time.Now().UTC()
	r.History = append(r.History, Transition{From: r.State, To: to, At: now})
	r.State = to
	if to.Terminal() {
		r.CompletedAt = &now
	}
	return nil
}

// Fail moves the run to StateFailed and records err.
func (r *Run) Fail(err error) {
	if err != nil {
		r.LastError = err.Error()
	}
	if r.State.Terminal() {
		return
	}
	_ = r.Advance(StateFailed)
}

// Elapsed returns the time since the run started, or its total duration
// once it reached a terminal state.
func (r *Run) Elapsed() time.Duration {
	if r.CompletedAt != nil {
		return r.CompletedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}
