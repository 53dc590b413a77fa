package execution

import (
	"errors"
	"time"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/domain/snapshot"
)

// Status is the state of a single step within a run.
type Status string

// Recorded step states.
const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// ReasonAborted is recorded on steps skipped after a fatal failure.
const ReasonAborted = "run aborted"

// ReasonInterrupted is recorded on steps skipped after the run context was cancelled.
const ReasonInterrupted = "run interrupted"

// Outcome is the recorded result of one step.
type Outcome struct {
	Ordinal       int           `json:"ordinal" yaml:"ordinal"`
	Name          string        `json:"name" yaml:"name"`
	Criticality   Criticality   `json:"criticality" yaml:"criticality"`
	Status        Status        `json:"status" yaml:"status"`
	Reason        string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Kind          faults.Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Subject       string        `json:"subject,omitempty" yaml:"subject,omitempty"`
	Error         string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
	Notes         []string      `json:"notes,omitempty" yaml:"notes,omitempty"`
	Escalated     bool          `json:"escalated,omitempty" yaml:"escalated,omitempty"`
	RolledBack    bool          `json:"rolled_back,omitempty" yaml:"rolled_back,omitempty"`
	RollbackError string        `json:"rollback_error,omitempty" yaml:"rollback_error,omitempty"`

	err error
}

// Err returns the error that failed the step, or nil.
func (o Outcome) Err() error {
	return o.err
}

// Fatal reports whether this outcome aborted the run. A DegradedContinue
// step whose failure was escalated counts as fatal.
func (o Outcome) Fatal() bool {
	return o.Status == StatusFailed && (o.Criticality == Fatal || o.Escalated)
}

// Host describes the machine the run targeted.
type Host struct {
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
}

// Report is the structured result of a run.
type Report struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	Host       Host                `json:"host" yaml:"host"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time           `json:"finished_at" yaml:"finished_at"`
	State      RunState            `json:"state" yaml:"state"`
	AbortedBy  string              `json:"aborted_by,omitempty" yaml:"aborted_by,omitempty"`
	Outcomes   []Outcome           `json:"outcomes" yaml:"outcomes"`
	Snapshots  []snapshot.Snapshot `json:"snapshots,omitempty" yaml:"snapshots,omitempty"`
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run completed without a fatal failure.
// Degraded failures do not change the answer.
func (r *Report) Succeeded() bool {
	return r.State == RunCompleted
}

// FatalFailure returns the outcome that aborted the run.
func (r *Report) FatalFailure() (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Fatal() {
			return o, true
		}
	}
	return Outcome{}, false
}

// Outcome returns the outcome of the named step.
func (r *Report) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Counts returns the number of outcomes per status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Err returns the fatal failure as an error, or nil.
func (r *Report) Err() error {
	o, ok := r.FatalFailure()
	if ok {
		if o.err != nil {
			return o.err
		}
		return errors.New(o.Error)
	}
	if r.State == RunAborted {
		return errors.New(ReasonInterrupted)
	}
	return nil
}
