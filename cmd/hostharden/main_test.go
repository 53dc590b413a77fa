package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/hostharden/internal/domain/config"
	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/testutil"
)

const (
	sshdConfig   = testutil.SSHDConfigPath
	originalSSHD = testutil.MinimalSSHDConfig
)

func newFakeHost() *testutil.Host {
	return testutil.NewHostBuilder().Build()
}

// execute runs the root command against host and returns stdout, stderr and the error.
func execute(t *testing.T, host *testutil.Host, args ...string) (string, string, error) {
	t.Helper()

	cfgFile, verbose, logFile, outputFormat = "", false, "", "text"
	saved := newDeps
	newDeps = host.Deps
	t.Cleanup(func() { newDeps = saved })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func exitCode(err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return -1
}

func TestRun_Succeeds(t *testing.T) {
	host := newFakeHost()

	stdout, stderr, err := execute(t, host)

	require.NoError(t, err)
	assert.Contains(t, stdout, "Hardening report for web-1")
	assert.Contains(t, stdout, "Summary: 13 succeeded, 0 failed, 0 skipped")
	assert.Contains(t, stderr, "step finished")
	assert.Contains(t, host.FS.Content(sshdConfig), "Port 2222\n")
}

func TestRun_JSONOutput(t *testing.T) {
	stdout, _, err := execute(t, newFakeHost(), "--output", "json")

	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "completed", report["state"])
}

func TestRun_FatalFailureExitsNonZero(t *testing.T) {
	host := newFakeHost()
	host.Probe.Answer(func(string) (string, error) { return "", errors.New("connection refused") })

	stdout, stderr, err := execute(t, host)

	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, stdout, "Ssh Hardening")
	assert.Contains(t, stderr, `step "ssh-hardening" failed`)
	assert.Contains(t, stderr, "cp "+sshdConfig+".bak.1700000000 "+sshdConfig)
	assert.Equal(t, originalSSHD, host.FS.Content(sshdConfig))
}

func TestRun_PreRunFailureChangesNothing(t *testing.T) {
	host := newFakeHost()
	host.Privilege.Root = false

	stdout, _, err := execute(t, host)

	require.Error(t, err)
	assert.Equal(t, exitPreRun, exitCode(err))
	assert.ErrorIs(t, err, faults.ErrPrivilege)
	assert.Empty(t, stdout)
	assert.Equal(t, originalSSHD, host.FS.Content(sshdConfig))
}

func TestRun_ConfigFile(t *testing.T) {
	path := testutil.WriteTempFile(t, "hostharden.yaml", "ssh:\n  port: 2022\n")
	host := newFakeHost()

	_, _, err := execute(t, host, "--config", path)

	require.NoError(t, err)
	assert.Contains(t, host.FS.Content(sshdConfig), "Port 2022\n")
	assert.Equal(t, []string{"127.0.0.1:2022"}, host.Probe.Probed())
}

func TestRun_InvalidConfig(t *testing.T) {
	path := testutil.WriteTempFile(t, "hostharden.toml", "[ssh]\nport = 70000\n")

	_, _, err := execute(t, newFakeHost(), "--config", path)

	require.Error(t, err)
	assert.Equal(t, exitPreRun, exitCode(err))
	assert.ErrorIs(t, err, config.ErrValidationFailed)
}

func TestRun_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	_, _, err := execute(t, newFakeHost(), "--log-file", path)

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"step finished"`)
}

func TestRun_UnknownOutputFormat(t *testing.T) {
	_, _, err := execute(t, newFakeHost(), "--output", "xml")

	require.Error(t, err)
	assert.Equal(t, exitPreRun, exitCode(err))
}

func TestPlanCmd(t *testing.T) {
	host := newFakeHost()

	stdout, _, err := execute(t, host, "plan")

	require.NoError(t, err)
	assert.Contains(t, stdout, "ssh-hardening")
	assert.Contains(t, stdout, "[access guard]")
	assert.Equal(t, originalSSHD, host.FS.Content(sshdConfig))
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := execute(t, newFakeHost(), "version")

	require.NoError(t, err)
	assert.Contains(t, stdout, "hostharden dev")
}

func TestFormatError(t *testing.T) {
	verbose = false

	userErr := config.NewConfigNotFoundError("/etc/hostharden.yaml")
	assert.Contains(t, formatError(userErr), "Suggestion:")

	fault := faults.NewServiceNotFoundError("ssh", []string{"ssh", "sshd"})
	assert.Contains(t, formatError(fmt.Errorf("run: %w", fault)), "ssh")

	assert.Equal(t, "plain", formatError(errors.New("plain")))

	var buf bytes.Buffer
	printErrorTo(&buf, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}
