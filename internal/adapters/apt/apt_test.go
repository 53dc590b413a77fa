package apt

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/ports"
	"github.com/felixgeelhaar/hostharden/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RefreshAndUpgrade(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.SetFallback(ports.CommandResult{})
	m := NewManager(runner)
	ctx := context.Background()

	require.NoError(t, m.RefreshIndex(ctx))
	require.NoError(t, m.Upgrade(ctx))

	assert.True(t, runner.Called(AptGet, "-q", "update"))
	assert.True(t, runner.Called(AptGet, "-q", "-y", "-o", "Dpkg::Options::=--force-confold", "upgrade"))
}

func TestManager_Install(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult(AptGet, []string{"-q", "-y", "install", "ufw", "fail2ban"}, ports.CommandResult{})
	m := NewManager(runner)

	require.NoError(t, m.Install(context.Background(), "ufw", "fail2ban"))
	require.NoError(t, m.Install(context.Background()))
	assert.Len(t, runner.Calls(), 1)
}

func TestManager_Install_Failure(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult(AptGet, []string{"-q", "-y", "install", "clamav"}, ports.CommandResult{
		ExitCode: 100,
		Stderr:   "Reading package lists...\nE: Unable to locate package clamav",
	})
	m := NewManager(runner)

	err := m.Install(context.Background(), "clamav")

	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrPackageInstall)
	assert.Equal(t, "clamav", faults.SubjectOf(err))
	assert.Contains(t, err.Error(), "E: Unable to locate package clamav")
	assert.NotContains(t, err.Error(), "Reading package lists")
}

func TestManager_Install_RunnerError(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddError(AptGet, []string{"-q", "update"}, errors.New("exec: apt-get: not found"))

	err := NewManager(runner).RefreshIndex(context.Background())

	assert.ErrorIs(t, err, faults.ErrPackageInstall)
}

func TestManager_Installed(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult(DpkgQuery, []string{"-W", "-f=${db:Status-Status}", "ufw"}, ports.CommandResult{Stdout: "installed"})
	runner.AddResult(DpkgQuery, []string{"-W", "-f=${db:Status-Status}", "aide"}, ports.CommandResult{Stdout: "config-files"})
	runner.AddResult(DpkgQuery, []string{"-W", "-f=${db:Status-Status}", "nope"}, ports.CommandResult{
		ExitCode: 1,
		Stderr:   "dpkg-query: no packages found matching nope",
	})
	m := NewManager(runner)
	ctx := context.Background()

	tests := map[string]bool{"ufw": true, "aide": false, "nope": false}
	for name, want := range tests {
		got, err := m.Installed(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
