// Package execution runs an ordered list of hardening steps with
// fail-fast semantics and accumulates a structured run report.
package execution

import (
	"fmt"
)

// Plan is the ordered, fixed list of steps for one run.
type Plan struct {
	steps []Step
}

// NewPlan creates a plan from steps in execution order.
func NewPlan(steps ...Step) *Plan {
	return &Plan{steps: append([]Step(nil), steps...)}
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.steps)
}

// Steps returns the steps in order. Step i has ordinal i+1.
func (p *Plan) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Validate checks the structural invariants of the plan:
// unique non-empty names, an action on every step, valid criticality, and
// access-guard steps that are Fatal and verified.
func (p *Plan) Validate() error {
	seen := make(map[string]bool, len(p.steps))
	for i, s := range p.steps {
		ordinal := i + 1
		if s.name == "" {
			return fmt.Errorf("step %d has no name", ordinal)
		}
		if seen[s.name] {
			return fmt.Errorf("step %d: duplicate step name %q", ordinal, s.name)
		}
		seen[s.name] = true

		if s.action == nil {
			return fmt.Errorf("step %q has no action", s.name)
		}
		if s.criticality != Fatal && s.criticality != DegradedContinue {
			return fmt.Errorf("step %q has invalid criticality %q", s.name, s.criticality)
		}
		if s.accessGuard {
			if s.criticality != Fatal {
				return fmt.Errorf("step %q changes remote access and must be %s", s.name, Fatal)
			}
			if s.verify == nil {
				return fmt.Errorf("step %q changes remote access and must verify its result", s.name)
			}
		}
	}
	return nil
}
