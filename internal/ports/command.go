// Package ports defines the interfaces hostharden uses to reach the live system.
// Every collaborator that touches the host (processes, files, packages,
// services, firewall, network) sits behind one of these interfaces so the
// engine can be exercised against in-memory fakes.
package ports

import (
	"context"
	"strings"
)

// CommandResult represents the result of executing a command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Output returns the trimmed stderr, falling back to stdout when stderr is empty.
func (r CommandResult) Output() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
}

// String renders the call the way it would be typed in a shell.
func (c CommandCall) String() string {
	if len(c.Args) == 0 {
		return c.Command
	}
	return c.Command + " " + strings.Join(c.Args, " ")
}

// CommandRunner executes external commands.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
}
