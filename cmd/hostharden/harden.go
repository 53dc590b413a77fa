package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hostharden/internal/adapters/logging"
	"github.com/felixgeelhaar/hostharden/internal/app"
	"github.com/felixgeelhaar/hostharden/internal/domain/config"
	"github.com/felixgeelhaar/hostharden/internal/domain/execution"
	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// newDeps builds the collaborators for a run. Tests replace it with fakes.
var newDeps = app.SystemDeps

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger writes human-readable lines to stderr and, when a log file is
// configured, JSON lines to that file as well.
func newLogger(stderr io.Writer, cfg *config.Config) (ports.Logger, func(), error) {
	console := logging.NewConsoleLogger(
		logging.WithOutput(stderr),
		logging.WithLevel(ports.ParseLevel(cfg.Log.Level)),
	)
	if cfg.Log.File == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	file := logging.NewZerologLogger(f, ports.LevelDebug)
	return logging.Tee{console, file}, func() { _ = f.Close() }, nil
}

func runHarden(cmd *cobra.Command, _ []string) error {
	format, err := app.ParseFormat(outputFormat)
	if err != nil {
		return preRun(err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return preRun(err)
	}
	logger, closeLog, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return preRun(err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ports.ContextWithLogger(ctx, logger)

	h := app.New(cfg, newDeps(cfg, logger)).OnOutcome(func(o execution.Outcome) {
		fields := []ports.Field{
			ports.F("step", o.Name),
			ports.F("status", string(o.Status)),
			ports.F("duration", o.Duration),
		}
		switch o.Status {
		case execution.StatusFailed:
			logger.Error(ctx, "step failed", append(fields, ports.F("error", o.Error))...)
		case execution.StatusSkipped:
			logger.Info(ctx, "step skipped", append(fields, ports.F("reason", o.Reason))...)
		default:
			logger.Info(ctx, "step finished", fields...)
		}
	})

	report, err := h.Run(ctx)
	if err != nil {
		if kind, ok := faults.KindOf(err); ok && kind.PreRun() {
			return preRun(err)
		}
		return &exitError{code: exitFailure, err: err}
	}

	if err := app.NewRenderer(cmd.OutOrStdout()).Report(report, format); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if report.Succeeded() {
		return nil
	}

	if reminder := app.FatalReminder(report, h.AccessConfigPath(), h.AccessServiceUnit()); reminder != "" {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), reminder)
	}
	return &exitError{code: exitFailure, err: report.Err()}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
