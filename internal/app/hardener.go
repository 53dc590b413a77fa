// Package app assembles the hardening plan for a host and runs it.
package app

import (
	"context"
	"os"
	"time"

	"github.com/felixgeelhaar/hostharden/internal/adapters/apt"
	"github.com/felixgeelhaar/hostharden/internal/adapters/command"
	"github.com/felixgeelhaar/hostharden/internal/adapters/filesystem"
	"github.com/felixgeelhaar/hostharden/internal/adapters/privilege"
	"github.com/felixgeelhaar/hostharden/internal/adapters/sshprobe"
	"github.com/felixgeelhaar/hostharden/internal/adapters/systemd"
	"github.com/felixgeelhaar/hostharden/internal/adapters/ufw"
	"github.com/felixgeelhaar/hostharden/internal/domain/config"
	"github.com/felixgeelhaar/hostharden/internal/domain/directive"
	"github.com/felixgeelhaar/hostharden/internal/domain/execution"
	"github.com/felixgeelhaar/hostharden/internal/domain/precondition"
	"github.com/felixgeelhaar/hostharden/internal/domain/service"
	"github.com/felixgeelhaar/hostharden/internal/domain/snapshot"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// Deps are the collaborators a Hardener drives. Every live-system effect
// goes through one of them.
type Deps struct {
	Commands  ports.CommandRunner
	FS        ports.FileSystem
	Packages  ports.PackageManager
	Services  ports.ServiceRegistry
	Firewall  ports.Firewall
	Probe     ports.ListenProbe
	Privilege ports.PrivilegeChecker
	Logger    ports.Logger
	Clock     func() time.Time
	Hostname  func() (string, error)
}

// SystemDeps wires the real adapters for the local host.
func SystemDeps(cfg *config.Config, logger ports.Logger) Deps {
	runner := command.NewRealRunner(
		command.WithEnv("DEBIAN_FRONTEND=noninteractive", "NEEDRESTART_MODE=a"),
		command.WithLogger(logger),
	)
	return Deps{
		Commands: runner,
		FS:       filesystem.NewRealFileSystem(),
		Packages: apt.NewManager(runner),
		Services: systemd.NewRegistry(runner),
		Firewall: ufw.NewFirewall(runner),
		Probe: sshprobe.New(
			sshprobe.WithTimeout(cfg.ProbeTimeout()),
			sshprobe.WithRetry(cfg.Probe.Attempts, cfg.ProbeInterval()),
			sshprobe.WithLogger(logger),
		),
		Privilege: privilege.NewChecker(),
		Logger:    logger,
		Clock:     time.Now,
		Hostname:  os.Hostname,
	}
}

// Hardener runs the fixed hardening plan once. Create a new Hardener per
// run: snapshot and service caches are scoped to it.
type Hardener struct {
	cfg      *config.Config
	deps     Deps
	snaps    *snapshot.Helper
	editor   *directive.Editor
	services *service.Reconciler
	checker  *precondition.Checker
	runner   *execution.Runner
}

// New creates a Hardener.
func New(cfg *config.Config, deps Deps) *Hardener {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Hostname == nil {
		deps.Hostname = os.Hostname
	}

	snaps := snapshot.NewHelper(deps.FS).WithClock(deps.Clock).WithLogger(deps.Logger)
	return &Hardener{
		cfg:      cfg,
		deps:     deps,
		snaps:    snaps,
		editor:   directive.NewEditor(deps.FS, snaps).WithLogger(deps.Logger),
		services: service.NewReconciler(deps.Services).WithLogger(deps.Logger),
		checker:  precondition.NewChecker(deps.Privilege, deps.FS, deps.Logger),
		runner:   execution.NewRunner(deps.Logger).WithClock(deps.Clock),
	}
}

// OnOutcome streams each step outcome as it completes.
func (h *Hardener) OnOutcome(fn func(execution.Outcome)) *Hardener {
	h.runner.OnOutcome(fn)
	return h
}

// Run checks preconditions, then executes the plan. A returned error means
// nothing was mutated: the host failed the privilege or platform check, or
// the plan was invalid. Step failures are reported in the Report.
func (h *Hardener) Run(ctx context.Context) (*execution.Report, error) {
	plat, err := h.checker.Check(ctx)
	if err != nil {
		return nil, err
	}
	h.deps.Logger.Info(ctx, "preconditions satisfied", ports.F("platform", plat.String()))

	report, err := h.runner.Run(ctx, h.Plan())
	if err != nil {
		return nil, err
	}

	report.Host.Platform = plat.String()
	if name, err := h.deps.Hostname(); err == nil {
		report.Host.Hostname = name
	}
	report.Snapshots = h.snaps.Taken()
	return report, nil
}

// AccessConfigPath returns the remote-access configuration file the plan edits.
func (h *Hardener) AccessConfigPath() string {
	return h.cfg.SSH.ConfigPath
}

// AccessServiceUnit returns the unit the SSH step resolved, or "ssh" when
// the run never got that far.
func (h *Hardener) AccessServiceUnit() string {
	if svc, ok := h.services.Cached(sshService); ok {
		return svc.Unit
	}
	return sshService
}
