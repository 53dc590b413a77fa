package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hostharden/internal/domain/config"
	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
)

// Exit codes.
const (
	exitFailure = 1 // a fatal step failed or the run was interrupted
	exitPreRun  = 2 // configuration, privilege or platform check failed; nothing was changed
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	logFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "hostharden",
	Short: "Harden a freshly provisioned Debian-family host",
	Long: `hostharden applies a fixed, ordered hardening plan to this machine:
package updates, firewall, SSH, fail2ban, integrity and malware scanners,
AppArmor, auditd, logwatch and a backup script placeholder.

Every step is safe to re-run. Configuration files are edited line by line
and snapshotted before their first change. Run with no arguments as root.`,
	Args:          cobra.NoArgs,
	RunE:          runHarden,
	SilenceErrors: true, // main prints errors
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.yaml or .toml; default: built-in settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write a JSON log to this file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "report format (text, json, yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func preRun(err error) error {
	return &exitError{code: exitPreRun, err: err}
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}

	var list *config.ErrorList
	if errors.As(err, &list) {
		return list.Format()
	}

	var fault *faults.Error
	if errors.As(err, &fault) {
		if verbose {
			return fault.Format()
		}
		msg := fault.Error()
		if fault.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", fault.Suggestion)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}
