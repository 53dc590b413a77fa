package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/ports"
	"github.com/google/uuid"
)

// Runner executes a Plan step by step.
//
// Steps run strictly in order. A Fatal failure invokes the failing step's
// own rollback, marks every later step skipped and aborts the run. A
// DegradedContinue failure is recorded and the run proceeds, except when
// the failure is a missing service: that is always fatal. Steps are
// never cancelled while running; the caller's context is only consulted
// between steps.
type Runner struct {
	logger    ports.Logger
	now       func() time.Time
	newID     func() string
	onOutcome func(Outcome)
}

// NewRunner creates a Runner.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// WithClock replaces the time source.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// WithRunID replaces the run ID generator.
func (r *Runner) WithRunID(newID func() string) *Runner {
	r.newID = newID
	return r
}

// OnOutcome registers a callback invoked after each step finishes, in order.
func (r *Runner) OnOutcome(fn func(Outcome)) *Runner {
	r.onOutcome = fn
	return r
}

// Run executes plan and returns its report. An error is returned only when
// the plan is invalid or the run could not start; step failures are
// recorded in the report.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	lc, err := newLifecycle()
	if err != nil {
		return nil, err
	}
	defer lc.stop()

	report := &Report{
		RunID:     r.newID(),
		StartedAt: r.now(),
		State:     lc.state(),
		Outcomes:  make([]Outcome, 0, plan.Len()),
	}
	log := r.logger.With(ports.F("run_id", report.RunID))

	lc.start()
	log.Info(ctx, "run started", ports.F("steps", plan.Len()))

	// Steps must not observe cancellation once started.
	stepCtx := context.WithoutCancel(ctx)
	abortReason := ""

	for i, step := range plan.Steps() {
		base := Outcome{Ordinal: i + 1, Name: step.name, Criticality: step.criticality}

		if abortReason == "" && ctx.Err() != nil {
			abortReason = ReasonInterrupted
			log.Warn(ctx, "run interrupted before step", ports.F("step", step.name), ports.Err(ctx.Err()))
			lc.abort(step.name)
		}
		if abortReason != "" {
			base.Status = StatusSkipped
			base.Reason = abortReason
			r.record(report, base)
			continue
		}

		outcome := r.execute(stepCtx, log, step, base)
		r.record(report, outcome)

		if outcome.Fatal() {
			abortReason = ReasonAborted
			lc.abort(step.name)
		}
	}

	if abortReason == "" {
		lc.finish()
	}
	report.State = lc.state()
	report.AbortedBy = lc.cause
	report.FinishedAt = r.now()

	counts := report.Counts()
	log.Info(ctx, "run finished",
		ports.F("state", string(report.State)),
		ports.F("succeeded", counts[StatusSucceeded]),
		ports.F("failed", counts[StatusFailed]),
		ports.F("skipped", counts[StatusSkipped]),
		ports.F("duration", report.Duration().String()),
	)
	return report, nil
}

func (r *Runner) record(report *Report, o Outcome) {
	report.Outcomes = append(report.Outcomes, o)
	if r.onOutcome != nil {
		r.onOutcome(o)
	}
}

// execute runs a single step through precondition, action and verification.
func (r *Runner) execute(ctx context.Context, log ports.Logger, step Step, outcome Outcome) Outcome {
	log = log.With(ports.F("step", step.name), ports.F("ordinal", outcome.Ordinal))
	rc := NewRunContext(ports.ContextWithLogger(ctx, log), log)
	start := r.now()

	finish := func(status Status, err error) Outcome {
		outcome.Status = status
		outcome.Duration = r.now().Sub(start)
		outcome.Notes = rc.Notes()
		if err != nil {
			outcome.err = err
			outcome.Error = err.Error()
			outcome.Kind, _ = faults.KindOf(err)
			outcome.Subject = faults.SubjectOf(err)
		}
		return outcome
	}

	if step.precondition != nil {
		met, reason, err := step.precondition(rc)
		if err != nil {
			log.Error(ctx, "precondition failed", ports.Err(err))
			return r.fail(rc, step, finish(StatusFailed, err))
		}
		if !met {
			log.Info(ctx, "step skipped", ports.F("reason", reason))
			outcome.Reason = reason
			return finish(StatusSkipped, nil)
		}
	}

	log.Info(ctx, "step running")
	if err := guard(step.name, "action", step.action, rc); err != nil {
		log.Error(ctx, "step action failed", ports.Err(err))
		return r.fail(rc, step, finish(StatusFailed, err))
	}

	if step.verify != nil {
		if err := guard(step.name, "verification", step.verify, rc); err != nil {
			if _, classified := faults.KindOf(err); !classified {
				err = &faults.Error{
					Kind:       faults.KindVerificationFailed,
					Message:    "verification failed",
					Subject:    step.name,
					Underlying: err,
				}
			}
			log.Error(ctx, "step verification failed", ports.Err(err))
			return r.fail(rc, step, finish(StatusFailed, err))
		}
	}

	o := finish(StatusSucceeded, nil)
	log.Info(ctx, "step succeeded", ports.F("duration", o.Duration.String()))
	return o
}

// guard runs fn and turns a panic into an error so the run can still roll
// back and report.
func guard(name, phase string, fn Action, rc RunContext) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("step %s panicked during %s: %v", name, phase, p)
		}
	}()
	return fn(rc)
}

// fail runs the step's own rollback when the failure is fatal.
func (r *Runner) fail(rc RunContext, step Step, outcome Outcome) Outcome {
	if outcome.Criticality != Fatal {
		if outcome.Kind != faults.KindServiceNotFound {
			rc.Logger().Warn(rc.Context(), "degraded step failed, continuing")
			return outcome
		}
		// No daemon means nothing protects the host; stop here.
		outcome.Escalated = true
		rc.Logger().Error(rc.Context(), "required service missing, aborting run",
			ports.F("service", outcome.Subject))
	}
	if step.rollback == nil {
		return outcome
	}

	err := guard(step.name, "rollback", step.rollback, rc)
	outcome.Notes = rc.Notes()
	if err != nil {
		outcome.RollbackError = err.Error()
		rc.Logger().Error(rc.Context(), "step rollback failed", ports.Err(err))
		outcome.err = errors.Join(outcome.err, fmt.Errorf("rollback: %w", err))
		return outcome
	}
	outcome.RolledBack = true
	rc.Logger().Warn(rc.Context(), "step rolled back")
	return outcome
}
