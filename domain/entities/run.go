package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/satriahrh/asreval/domain"
)

// RunState represents the state of an evaluation run
type RunState string

const (
	RunStateIdle        RunState = "idle"
	RunStateCollecting  RunState = "collecting"
	RunStateScoring     RunState = "scoring"
	RunStateAggregating RunState = "aggregating"
	RunStatePersisted   RunState = "persisted"
	RunStateDone        RunState = "done"
	RunStateFailed      RunState = "failed"
)

// allowedTransitions excludes Failed, which is reachable from every non-terminal state
var allowedTransitions = map[RunState][]RunState{
	RunStateIdle:        {RunStateCollecting, RunStateDone},
	RunStateCollecting:  {RunStateScoring, RunStateDone},
	RunStateScoring:     {RunStateAggregating},
	RunStateAggregating: {RunStatePersisted},
	RunStatePersisted:   {RunStateDone},
}

// SampleResult records what happened to one sample within a run
type SampleResult struct {
	SampleID string             `json:"sample_id" bson:"sample_id"`
	Outcome  domain.OutcomeKind `json:"outcome" bson:"outcome"`
	Engine   EngineID           `json:"engine,omitempty" bson:"engine,omitempty"`
	Reason   string             `json:"reason,omitempty" bson:"reason,omitempty"`
	Measures *ErrorMeasures     `json:"measures,omitempty" bson:"measures,omitempty"`
}

// Run is one evaluation session over the samples of a single day
type Run struct {
	ID          string           `json:"id" bson:"run_id"`
	Date        time.Time        `json:"date" bson:"date"`
	State       RunState         `json:"state" bson:"state"`
	StartedAt   time.Time        `json:"started_at" bson:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	Samples     []SampleResult   `json:"samples" bson:"samples"`
	Record      *AggregateRecord `json:"record,omitempty" bson:"record,omitempty"`
	Error       string           `json:"error,omitempty" bson:"error,omitempty"`
}

// NewRun creates an idle run for the given day
func NewRun(id string, date time.Time) *Run {
	return &Run{
		ID:        id,
		Date:      Day(date),
		State:     RunStateIdle,
		StartedAt: time.Now(),
		Samples:   make([]SampleResult, 0),
	}
}

// IsTerminal reports whether the run has reached Done or Failed
func (r *Run) IsTerminal() bool {
	return r.State == RunStateDone || r.State == RunStateFailed
}

// Transition moves the run to the next state, rejecting moves the state machine does not allow
func (r *Run) Transition(to RunState) error {
	if r.IsTerminal() {
		return fmt.Errorf("run %s is already %s", r.ID, r.State)
	}
	if to == RunStateFailed {
		r.State = to
		r.complete()
		return nil
	}
	for _, next := range allowedTransitions[r.State] {
		if next == to {
			r.State = to
			if to == RunStateDone {
				r.complete()
			}
			return nil
		}
	}
	return fmt.Errorf("run %s cannot move from %s to %s", r.ID, r.State, to)
}

// Fail moves the run to Failed and keeps the error message
func (r *Run) Fail(err error) {
	if r.IsTerminal() {
		return
	}
	if err != nil {
		r.Error = err.Error()
	}
	_ = r.Transition(RunStateFailed)
}

// AddResult appends the disposition of one sample
func (r *Run) AddResult(result SampleResult) {
	r.Samples = append(r.Samples, result)
}

// Count returns how many samples ended with the given outcome
func (r *Run) Count(kind domain.OutcomeKind) int {
	n := 0
	for _, s := range r.Samples {
		if s.Outcome == kind {
			n++
		}
	}
	return n
}

// Validate checks the run carries an id and a known state
func (r *Run) Validate() error {
	if r.ID == "" {
		return errors.New("run id is required")
	}
	switch r.State {
	case RunStateIdle, RunStateCollecting, RunStateScoring, RunStateAggregating,
		RunStatePersisted, RunStateDone, RunStateFailed:
		return nil
	}
	return errors.New("invalid run state")
}

func (r *Run) complete() {
	now := time.Now()
	r.CompletedAt = &now
}
