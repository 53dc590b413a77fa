package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// CommandRunner is a thread-safe test double for ports.CommandRunner.
type CommandRunner struct {
	mu       sync.RWMutex
	results  map[string]ports.CommandResult
	errors   map[string]error
	calls    []ports.CommandCall
	fallback *ports.CommandResult
	journal  *Journal
}

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		results: make(map[string]ports.CommandResult),
		errors:  make(map[string]error),
		calls:   make([]ports.CommandCall, 0),
	}
}

// WithJournal records every invocation in j as "run <command line>".
func (m *CommandRunner) WithJournal(j *Journal) *CommandRunner {
	m.journal = j
	return m
}

// AddResult registers an expected command and its result.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[buildKey(command, args)] = result
}

// AddError registers an expected command that should return an error.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[buildKey(command, args)] = err
}

// SetFallback makes unregistered commands return result instead of an error.
func (m *CommandRunner) SetFallback(result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &result
}

// Run executes a mock command.
func (m *CommandRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	call := ports.CommandCall{Command: command, Args: args}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	m.journal.Record("run %s", call.String())

	m.mu.RLock()
	defer m.mu.RUnlock()

	key := buildKey(command, args)
	if err, ok := m.errors[key]; ok {
		return ports.CommandResult{}, err
	}
	if result, ok := m.results[key]; ok {
		return result, nil
	}
	if m.fallback != nil {
		return *m.fallback, nil
	}
	return ports.CommandResult{}, fmt.Errorf("no mock result for command: %s %v", command, args)
}

// Calls returns all recorded command invocations.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Called reports whether command was invoked with exactly args.
func (m *CommandRunner) Called(command string, args ...string) bool {
	key := buildKey(command, args)
	for _, c := range m.Calls() {
		if buildKey(c.Command, c.Args) == key {
			return true
		}
	}
	return false
}

func buildKey(command string, args []string) string {
	return command + ":" + strings.Join(args, ":")
}

var _ ports.CommandRunner = (*CommandRunner)(nil)
