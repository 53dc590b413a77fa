package execution

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// Criticality decides what a step failure does to the rest of the run.
type Criticality string

const (
	// Fatal failures abort the run; no later step executes.
	Fatal Criticality = "fatal"
	// DegradedContinue failures are recorded and the run proceeds.
	DegradedContinue Criticality = "degraded-continue"
)

// String returns the criticality name.
func (c Criticality) String() string {
	return string(c)
}

// RunContext is handed to every precondition, action, verification and
// rollback. Its context is never cancelled while the step runs.
type RunContext struct {
	ctx    context.Context
	logger ports.Logger
	notes  *[]string
}

// NewRunContext creates a RunContext. Steps invoked outside a Runner (for
// example in tests) can use it directly.
func NewRunContext(ctx context.Context, logger ports.Logger) RunContext {
	return RunContext{ctx: ctx, logger: logger, notes: new([]string)}
}

// Context returns the underlying context.Context.
func (r RunContext) Context() context.Context {
	return r.ctx
}

// Logger returns the step-scoped logger.
func (r RunContext) Logger() ports.Logger {
	return r.logger
}

// Notef attaches an operator-facing note to the step outcome, e.g. the
// path of a snapshot or the fingerprint of a verified host key.
func (r RunContext) Notef(format string, args ...interface{}) {
	*r.notes = append(*r.notes, fmt.Sprintf(format, args...))
}

// Notes returns the notes recorded so far.
func (r RunContext) Notes() []string {
	return append([]string(nil), *r.notes...)
}

// Precondition decides whether a step applies. When met is false the step
// is skipped and reason is recorded.
type Precondition func(rc RunContext) (met bool, reason string, err error)

// Action mutates or inspects the system.
type Action func(rc RunContext) error

// Step is one named hardening step. Steps are immutable values: every
// builder method returns a modified copy.
type Step struct {
	name         string
	description  string
	criticality  Criticality
	accessGuard  bool
	precondition Precondition
	action       Action
	verify       Action
	rollback     Action
}

// NewStep creates a step with the given name and criticality.
func NewStep(name string, criticality Criticality) Step {
	return Step{name: name, criticality: criticality}
}

// Describe returns a copy with a one-line description.
func (s Step) Describe(description string) Step {
	s.description = description
	return s
}

// When returns a copy guarded by precondition.
func (s Step) When(precondition Precondition) Step {
	s.precondition = precondition
	return s
}

// Do returns a copy with action set.
func (s Step) Do(action Action) Step {
	s.action = action
	return s
}

// Verify returns a copy with a post-action verification.
func (s Step) Verify(verify Action) Step {
	s.verify = verify
	return s
}

// OnFailure returns a copy with a rollback that undoes this step's own
// partial mutation. It runs when the action or verification fails.
func (s Step) OnFailure(rollback Action) Step {
	s.rollback = rollback
	return s
}

// GuardsAccess marks the step as changing remote administrative access.
// Such steps must be Fatal and carry a verification.
func (s Step) GuardsAccess() Step {
	s.accessGuard = true
	return s
}

// Name returns the step name.
func (s Step) Name() string { return s.name }

// Description returns the step description.
func (s Step) Description() string { return s.description }

// Criticality returns the step criticality.
func (s Step) Criticality() Criticality { return s.criticality }

// IsAccessGuard reports whether the step changes remote access.
func (s Step) IsAccessGuard() bool { return s.accessGuard }

// HasVerification reports whether the step verifies its result.
func (s Step) HasVerification() bool { return s.verify != nil }

// HasRollback reports whether the step can undo a failed attempt.
func (s Step) HasRollback() bool { return s.rollback != nil }
