// Package command runs external programs for the system adapters.
package command

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// RealRunner executes programs on the host. A non-zero exit status is not
// an error; it is reported through CommandResult.ExitCode.
type RealRunner struct {
	env    []string
	logger ports.Logger
}

// RunnerOption configures a RealRunner.
type RunnerOption func(*RealRunner)

// WithEnv adds KEY=VALUE pairs to the environment of every command.
func WithEnv(kv ...string) RunnerOption {
	return func(r *RealRunner) { r.env = append(r.env, kv...) }
}

// WithLogger logs every invocation at debug level.
func WithLogger(l ports.Logger) RunnerOption {
	return func(r *RealRunner) { r.logger = l }
}

// NewRealRunner creates a RealRunner.
func NewRealRunner(opts ...RunnerOption) *RealRunner {
	r := &RealRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a command and returns the result.
func (r *RealRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ports.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		err = nil
	}

	if r.logger != nil {
		r.logger.Debug(ctx, "command finished",
			ports.F("command", ports.CommandCall{Command: command, Args: args}.String()),
			ports.F("exit_code", result.ExitCode),
		)
	}
	return result, err
}

var _ ports.CommandRunner = (*RealRunner)(nil)
