// Package apt drives the Debian package manager through apt-get and dpkg-query.
package apt

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// Commands used by the adapter.
const (
	AptGet    = "apt-get"
	DpkgQuery = "dpkg-query"
)

// Manager implements ports.PackageManager. The runner is expected to set
// DEBIAN_FRONTEND=noninteractive so maintainer scripts never prompt.
type Manager struct {
	runner ports.CommandRunner
}

// NewManager creates a Manager.
func NewManager(runner ports.CommandRunner) *Manager {
	return &Manager{runner: runner}
}

// RefreshIndex runs apt-get update.
func (m *Manager) RefreshIndex(ctx context.Context) error {
	return m.aptGet(ctx, []string{"update"}, "-q", "update")
}

// Upgrade applies pending upgrades, keeping locally modified configuration files.
func (m *Manager) Upgrade(ctx context.Context) error {
	return m.aptGet(ctx, []string{"upgrade"},
		"-q", "-y", "-o", "Dpkg::Options::=--force-confold", "upgrade")
}

// Install installs names. apt-get treats already-installed packages as a no-op.
func (m *Manager) Install(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	args := append([]string{"-q", "-y", "install"}, names...)
	return m.aptGet(ctx, names, args...)
}

// Installed reports whether dpkg considers name installed.
func (m *Manager) Installed(ctx context.Context, name string) (bool, error) {
	result, err := m.runner.Run(ctx, DpkgQuery, "-W", "-f=${db:Status-Status}", name)
	if err != nil {
		return false, fmt.Errorf("dpkg-query %s: %w", name, err)
	}
	// dpkg-query exits 1 for unknown packages.
	if !result.Success() {
		return false, nil
	}
	return strings.TrimSpace(result.Stdout) == "installed", nil
}

func (m *Manager) aptGet(ctx context.Context, subject []string, args ...string) error {
	result, err := m.runner.Run(ctx, AptGet, args...)
	if err != nil {
		return faults.NewPackageInstallError(subject, err)
	}
	if !result.Success() {
		return faults.NewPackageInstallError(subject,
			fmt.Errorf("apt-get exited with %d: %s", result.ExitCode, lastLine(result.Output())))
	}
	return nil
}

// lastLine keeps error messages short; apt prints its reason last.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

var _ ports.PackageManager = (*Manager)(nil)
