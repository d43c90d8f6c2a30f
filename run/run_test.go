package run_test

import (
	"errors"
	"testing"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/run"
)

func TestAdvance_HappyPath(t *testing.T) {
	r := run.New(run.OpSendIndividualDocuments, 1, "k1")

	path := []run.State{
		run.StateAdmitted,
		run.StateBuilding,
		run.StateArchiving,
		run.StateDispatching,
		run.StateCompleted,
	}
	for _, s := range path {
		if err := r.Advance(s); err != nil {
			t.Fatalf("Advance(%s): %v", s, err)
		}
	}
	if r.CompletedAt == nil {
		t.Fatal("expected CompletedAt on terminal state")
	}
	if len(r.History) != len(path) {
		t.Errorf("history length = %d, want %d", len(r.History), len(path))
	}
}

func TestAdvance_EarlyExits(t *testing.T) {
	rejected := run.New(run.OpCreateIndividualDocuments, 1, "k1")
	if err := rejected.Advance(run.StateRejected); err != nil {
		t.Fatalf("received -> rejected: %v", err)
	}

	hit := run.New(run.OpCreateIndividualDocuments, 1, "k1")
	if err := hit.Advance(run.StateCacheHit); err != nil {
		t.Fatalf("received -> cache_hit: %v", err)
	}
	if err := hit.Advance(run.StateCompleted); err != nil {
		t.Fatalf("cache_hit -> completed: %v", err)
	}
}

func TestAdvance_RejectsBackwardEdges(t *testing.T) {
	tests := []struct {
		name string
		path []run.State
		bad  run.State
	}{
		{"dispatching to building", []run.State{run.StateAdmitted, run.StateDispatching}, run.StateBuilding},
		{"completed to admitted", []run.State{run.StateAdmitted, run.StateCompleted}, run.StateAdmitted},
		{"rejected to admitted", []run.State{run.StateRejected}, run.StateAdmitted},
		{"cache hit to building", []run.State{run.StateCacheHit}, run.StateBuilding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run.New(run.OpSendAggregateReport, 1, "k")
			for _, s := range tt.path {
				if err := r.Advance(s); err != nil {
					t.Fatalf("Advance(%s): %v", s, err)
				}
			}
			err := r.Advance(tt.bad)
			if !errors.Is(err, payroll.ErrInvalidState) {
				t.Errorf("Advance(%s) error = %v, want ErrInvalidState", tt.bad, err)
			}
		})
	}
}

func TestFail(t *testing.T) {
	r := run.New(run.OpCreateAggregateReport, 1, "k")
	_ = r.Advance(run.StateAdmitted)
	r.Fail(errors.New("disk full"))
	if r.State != run.StateFailed {
		t.Errorf("state = %s, want failed", r.State)
	}
	if r.LastError != "disk full" {
		t.Errorf("LastError = %q", r.LastError)
	}

	// Failing a terminal run keeps its state.
	done := run.New(run.OpCreateAggregateReport, 1, "k")
	_ = done.Advance(run.StateRejected)
	done.Fail(errors.New("late"))
	if done.State != run.StateRejected {
		t.Errorf("state = %s, want rejected", done.State)
	}
}

func TestOperationValid(t *testing.T) {
	for _, op := range run.Operations {
		if !op.Valid() {
			t.Errorf("%s should be valid", op)
		}
	}
	if run.Operation("delete_everything").Valid() {
		t.Error("unknown operation reported valid")
	}
}
