// Package e2e provides end-to-end testing utilities for the hostharden CLI.
package e2e

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Harness builds the hostharden binary and runs it as a subprocess.
type Harness struct {
	T            *testing.T
	BinaryPath   string
	TempDir      string
	Timeout      time.Duration
	LastOutput   string
	LastError    string
	LastExitCode int
}

// NewHarness creates a new end-to-end test harness.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	return &Harness{
		T:          t,
		BinaryPath: getBinary(t),
		TempDir:    t.TempDir(),
		Timeout:    30 * time.Second,
	}
}

// getBinary returns the path to the hostharden binary, building it unless
// HOSTHARDEN_BINARY names an existing file.
func getBinary(t *testing.T) string {
	t.Helper()

	if path := os.Getenv("HOSTHARDEN_BINARY"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	binaryPath := filepath.Join(t.TempDir(), "hostharden-test")

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/hostharden")
	cmd.Dir = findProjectRoot(t)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("failed to build hostharden binary: %v\n%s", err, stderr.String())
	}

	return binaryPath
}

// findProjectRoot walks up from the working directory to go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}

// Run executes hostharden and returns the exit code.
func (h *Harness) Run(args ...string) int {
	h.T.Helper()

	cmd := exec.Command(h.BinaryPath, args...)
	cmd.Dir = h.TempDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		h.T.Fatalf("failed to start %v: %v", args, err)
	}
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		h.LastOutput = stdout.String()
		h.LastError = stderr.String()
		h.LastExitCode = 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				h.LastExitCode = exitErr.ExitCode()
			} else {
				h.LastExitCode = -1
			}
		}
	case <-time.After(h.Timeout):
		_ = cmd.Process.Kill()
		<-done
		h.T.Fatalf("command timed out after %v: %v", h.Timeout, args)
	}

	return h.LastExitCode
}

// RunSuccess executes a command and expects it to succeed.
func (h *Harness) RunSuccess(args ...string) string {
	h.T.Helper()

	if code := h.Run(args...); code != 0 {
		h.T.Fatalf("command failed with exit code %d: %v\nOutput: %s\nStderr: %s",
			code, args, h.LastOutput, h.LastError)
	}
	return h.LastOutput
}

// CreateFile writes content under the harness temp directory.
func (h *Harness) CreateFile(name, content string) string {
	h.T.Helper()

	path := filepath.Join(h.TempDir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		h.T.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// AssertOutputContains fails unless the last stdout contains s.
func (h *Harness) AssertOutputContains(s string) {
	h.T.Helper()

	if !strings.Contains(h.LastOutput, s) {
		h.T.Errorf("expected output to contain %q\nOutput: %s", s, h.LastOutput)
	}
}

// AssertErrorContains fails unless the last stderr contains s.
func (h *Harness) AssertErrorContains(s string) {
	h.T.Helper()

	if !strings.Contains(h.LastError, s) {
		h.T.Errorf("expected stderr to contain %q\nStderr: %s", s, h.LastError)
	}
}
