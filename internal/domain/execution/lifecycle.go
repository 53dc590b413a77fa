package execution

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// RunState is the lifecycle state of a run.
type RunState string

// Run states.
const (
	RunNotStarted RunState = "not-started"
	RunRunning    RunState = "running"
	RunCompleted  RunState = "completed"
	RunAborted    RunState = "aborted"
)

// Run lifecycle events.
const (
	EventStart  = "START"
	EventFinish = "FINISH"
	EventAbort  = "ABORT"
)

// lifecycleContext is the statekit machine context. The run keeps its
// data in the Report; the machine only tracks state.
type lifecycleContext struct{}

// lifecycle tracks a single run: not-started → running → completed | aborted.
type lifecycle struct {
	interp *statekit.Interpreter[lifecycleContext]
	cause  string
}

func newLifecycle() (*lifecycle, error) {
	l := &lifecycle{}
	machine, err := statekit.NewMachine[lifecycleContext]("hardening-run").
		WithInitial("not-started").
		WithContext(lifecycleContext{}).
		WithAction("recordAbort", func(_ *lifecycleContext, event statekit.Event) {
			if step, ok := event.Payload.(string); ok {
				l.cause = step
			}
		}).
		State("not-started").
		On(EventStart).Target("running").Done().
		State("running").
		On(EventFinish).Target("completed").
		On(EventAbort).Target("aborted").Done().
		State("completed").
		On(EventFinish).Target("completed").Done().
		State("aborted").
		OnEntry("recordAbort").
		On(EventAbort).Target("aborted").Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build run state machine: %w", err)
	}

	l.interp = statekit.NewInterpreter(machine)
	l.interp.Start()
	return l, nil
}

func (l *lifecycle) start() {
	l.interp.Send(statekit.Event{Type: EventStart})
}

func (l *lifecycle) finish() {
	l.interp.Send(statekit.Event{Type: EventFinish})
}

// abort moves the run to aborted, recording the step that caused it.
func (l *lifecycle) abort(step string) {
	l.interp.Send(statekit.Event{Type: EventAbort, Payload: step})
}

func (l *lifecycle) state() RunState {
	return RunState(l.interp.State().Value)
}

func (l *lifecycle) stop() {
	l.interp.Stop()
}
