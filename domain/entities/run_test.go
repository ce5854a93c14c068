package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/satriahrh/asreval/domain"
)

func TestRunCreation(t *testing.T) {
	date := time.Date(2024, 3, 5, 17, 30, 0, 0, time.UTC)
	run := NewRun("run-1", date)

	if run.State != RunStateIdle {
		t.Errorf("Expected state %s, got %s", RunStateIdle, run.State)
	}
	if !run.Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected date truncated to day, got %s", run.Date)
	}
	if len(run.Samples) != 0 {
		t.Errorf("Expected no samples, got %d", len(run.Samples))
	}
	if err := run.Validate(); err != nil {
		t.Errorf("Expected valid run, got %v", err)
	}
}

func TestRunHappyPath(t *testing.T) {
	run := NewRun("run-1", time.Now())
	steps := []RunState{
		RunStateCollecting,
		RunStateScoring,
		RunStateAggregating,
		RunStatePersisted,
		RunStateDone,
	}
	for _, s := range steps {
		if err := run.Transition(s); err != nil {
			t.Fatalf("Transition to %s failed: %v", s, err)
		}
	}
	if !run.IsTerminal() {
		t.Error("Expected run to be terminal")
	}
	if run.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set")
	}
}

func TestRunCollectingStraightToDone(t *testing.T) {
	run := NewRun("run-1", time.Now())
	_ = run.Transition(RunStateCollecting)
	if err := run.Transition(RunStateDone); err != nil {
		t.Fatalf("Expected Collecting -> Done to be allowed, got %v", err)
	}
}

func TestRunRejectsSkippingStates(t *testing.T) {
	run := NewRun("run-1", time.Now())
	if err := run.Transition(RunStatePersisted); err == nil {
		t.Error("Expected Idle -> Persisted to be rejected")
	}
	_ = run.Transition(RunStateCollecting)
	if err := run.Transition(RunStateAggregating); err == nil {
		t.Error("Expected Collecting -> Aggregating to be rejected")
	}
}

func TestRunFailFromAnyState(t *testing.T) {
	for _, from := range []RunState{RunStateIdle, RunStateCollecting, RunStateScoring, RunStateAggregating} {
		run := NewRun("run-1", time.Now())
		run.State = from
		run.Fail(errors.New("disk full"))

		if run.State != RunStateFailed {
			t.Errorf("from %s: expected failed, got %s", from, run.State)
		}
		if run.Error != "disk full" {
			t.Errorf("from %s: expected error message kept, got %q", from, run.Error)
		}
		if err := run.Transition(RunStateDone); err == nil {
			t.Errorf("from %s: expected terminal run to reject transitions", from)
		}
	}
}

func TestRunCount(t *testing.T) {
	run := NewRun("run-1", time.Now())
	run.AddResult(SampleResult{SampleID: "a", Outcome: domain.OutcomeAccepted})
	run.AddResult(SampleResult{SampleID: "b", Outcome: domain.OutcomeRejected, Reason: "too short"})
	run.AddResult(SampleResult{SampleID: "c", Outcome: domain.OutcomeAccepted})

	if got := run.Count(domain.OutcomeAccepted); got != 2 {
		t.Errorf("Expected 2 accepted, got %d", got)
	}
	if got := run.Count(domain.OutcomeFailed); got != 0 {
		t.Errorf("Expected 0 failed, got %d", got)
	}
}
