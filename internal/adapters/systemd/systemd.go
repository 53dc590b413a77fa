// Package systemd implements ports.ServiceRegistry with systemctl.
package systemd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostharden/internal/ports"
)

const systemctl = "systemctl"

// Registry implements ports.ServiceRegistry.
type Registry struct {
	runner ports.CommandRunner
}

// NewRegistry creates a Registry.
func NewRegistry(runner ports.CommandRunner) *Registry {
	return &Registry{runner: runner}
}

// ListServices returns every service unit file name without the ".service"
// suffix, aliases included (Debian ships sshd.service as an alias of ssh.service).
func (r *Registry) ListServices(ctx context.Context) (map[string]struct{}, error) {
	result, err := r.runner.Run(ctx, systemctl,
		"list-unit-files", "--type=service", "--no-legend", "--no-pager", "--plain")
	if err != nil {
		return nil, fmt.Errorf("systemctl list-unit-files: %w", err)
	}
	if !result.Success() {
		return nil, fmt.Errorf("systemctl list-unit-files: %s", result.Output())
	}
	return parseUnitFiles(result.Stdout), nil
}

func parseUnitFiles(out string) map[string]struct{} {
	services := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		name, ok := strings.CutSuffix(fields[0], ".service")
		if !ok {
			continue
		}
		services[name] = struct{}{}
	}
	return services
}

// Enable enables name at boot. Enabling an enabled unit is a no-op.
func (r *Registry) Enable(ctx context.Context, name string) error {
	return r.run(ctx, "enable", name)
}

// Restart restarts name, starting it if stopped.
func (r *Registry) Restart(ctx context.Context, name string) error {
	return r.run(ctx, "restart", name)
}

// Status maps systemctl is-active onto a ServiceStatus.
func (r *Registry) Status(ctx context.Context, name string) (ports.ServiceStatus, error) {
	result, err := r.runner.Run(ctx, systemctl, "is-active", name)
	if err != nil {
		return ports.ServiceUnknown, fmt.Errorf("systemctl is-active %s: %w", name, err)
	}
	switch strings.TrimSpace(result.Stdout) {
	case "active", "reloading":
		return ports.ServiceRunning, nil
	case "inactive", "failed", "deactivating":
		return ports.ServiceStopped, nil
	default:
		return ports.ServiceUnknown, nil
	}
}

func (r *Registry) run(ctx context.Context, action, name string) error {
	result, err := r.runner.Run(ctx, systemctl, action, name)
	if err != nil {
		return fmt.Errorf("systemctl %s %s: %w", action, name, err)
	}
	if !result.Success() {
		return fmt.Errorf("systemctl %s %s: %s", action, name, result.Output())
	}
	return nil
}

var _ ports.ServiceRegistry = (*Registry)(nil)
