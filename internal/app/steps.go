package app

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostharden/internal/domain/directive"
	"github.com/felixgeelhaar/hostharden/internal/domain/execution"
	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/domain/service"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// Files written or edited by the plan.
const (
	AutoUpgradesPath = "/etc/apt/apt.conf.d/20auto-upgrades"
	AIDEDatabasePath = "/var/lib/aide/aide.db"
	AuditRulesPath   = "/etc/audit/rules.d/hardening.rules"
	LogwatchConfPath = "/etc/logwatch/conf/logwatch.conf"
)

// install installs the packages not already present. A package whose
// state cannot be queried is installed anyway.
func (h *Hardener) install(rc execution.RunContext, names ...string) error {
	var missing, present []string
	for _, name := range names {
		if ok, err := h.deps.Packages.Installed(rc.Context(), name); err == nil && ok {
			present = append(present, name)
			continue
		}
		missing = append(missing, name)
	}
	if len(present) > 0 {
		rc.Notef("already installed: %s", strings.Join(present, " "))
	}
	if len(missing) == 0 {
		return nil
	}

	if err := h.deps.Packages.Install(rc.Context(), missing...); err != nil {
		if _, ok := faults.KindOf(err); !ok {
			err = faults.NewPackageInstallError(missing, err)
		}
		return err
	}
	rc.Notef("installed %s", strings.Join(missing, " "))
	return nil
}

// startService resolves logical among candidates, enables it and restarts it.
func (h *Hardener) startService(rc execution.RunContext, logical string, candidates ...string) (service.Handle, error) {
	svc, err := h.services.Resolve(rc.Context(), logical, candidates...)
	if err != nil {
		return service.Handle{}, err
	}
	if err := h.services.EnableAndRestart(rc.Context(), svc); err != nil {
		return svc, err
	}
	rc.Notef("%s enabled and restarted", svc.Unit)
	return svc, nil
}

// requireRunning verifies a service resolved earlier in the step.
func (h *Hardener) requireRunning(rc execution.RunContext, logical string) error {
	svc, ok := h.services.Cached(logical)
	if !ok {
		return faults.NewVerificationFailedError(logical, "service was never resolved")
	}
	return h.services.RequireRunning(rc.Context(), svc)
}

// exec runs an external command and turns a non-zero exit into a
// classified error naming the command line.
func (h *Hardener) exec(rc execution.RunContext, name string, args ...string) (ports.CommandResult, error) {
	call := ports.CommandCall{Command: name, Args: args}.String()
	result, err := h.deps.Commands.Run(rc.Context(), name, args...)
	if err != nil {
		return result, faults.NewCommandError(call, err)
	}
	if !result.Success() {
		return result, faults.NewCommandError(call,
			fmt.Errorf("exited with %d: %s", result.ExitCode, result.Output()))
	}
	return result, nil
}

func (h *Hardener) snapshotAccessConfigStep() execution.Step {
	path := h.cfg.SSH.ConfigPath
	return execution.NewStep(StepSnapshotAccessConfig, execution.Fatal).
		Describe("Capture " + path + " before any change").
		Do(func(rc execution.RunContext) error {
			snap, _, err := h.snaps.Ensure(path)
			if err != nil {
				return err
			}
			rc.Notef("snapshot %s", snap.Path)
			return nil
		})
}

func (h *Hardener) systemUpdateStep() execution.Step {
	return execution.NewStep(StepSystemUpdate, execution.Fatal).
		Describe("Refresh the package index and apply pending upgrades").
		Do(func(rc execution.RunContext) error {
			if err := h.deps.Packages.RefreshIndex(rc.Context()); err != nil {
				return err
			}
			return h.deps.Packages.Upgrade(rc.Context())
		})
}

var autoUpgradeDirectives = []directive.Directive{
	directive.New("APT::Periodic::Update-Package-Lists", `"1";`),
	directive.New("APT::Periodic::Unattended-Upgrade", `"1";`),
}

func (h *Hardener) unattendedUpgradesStep() execution.Step {
	return execution.NewStep(StepUnattendedUpgrades, execution.Fatal).
		Describe("Install unattended-upgrades and enable daily security updates").
		Do(func(rc execution.RunContext) error {
			if err := h.install(rc, "unattended-upgrades", "apt-listchanges"); err != nil {
				return err
			}
			if _, err := h.ensureFile(AutoUpgradesPath, nil, 0o644); err != nil {
				return err
			}
			_, err := h.editor.ApplyAll(AutoUpgradesPath, autoUpgradeDirectives...)
			return err
		}).
		Verify(func(execution.RunContext) error {
			return h.editor.Verify(AutoUpgradesPath, autoUpgradeDirectives...)
		})
}

func (h *Hardener) firewallStep() execution.Step {
	port := h.cfg.SSH.Port
	return execution.NewStep(StepFirewall, execution.Fatal).
		Describe(fmt.Sprintf("Deny inbound traffic except SSH on %d/tcp, then enable ufw", port)).
		Do(func(rc execution.RunContext) error {
			ctx := rc.Context()
			if err := h.install(rc, "ufw"); err != nil {
				return err
			}
			if err := h.deps.Firewall.SetDefaults(ctx, "deny", "allow"); err != nil {
				return err
			}
			// The SSH rule goes in before enable so the current session survives.
			if err := h.deps.Firewall.Allow(ctx, port, "tcp"); err != nil {
				return err
			}
			for _, r := range h.cfg.ExtraRules() {
				if err := h.deps.Firewall.Allow(ctx, r.Port, r.Proto); err != nil {
					return err
				}
				rc.Notef("allowed %s", r)
			}
			return h.deps.Firewall.Enable(ctx)
		}).
		Verify(func(rc execution.RunContext) error {
			ok, err := h.deps.Firewall.Allows(rc.Context(), port, "tcp")
			if err != nil {
				return err
			}
			if !ok {
				return faults.NewVerificationFailedError(fmt.Sprintf("%d/tcp", port), "firewall is not admitting the SSH port")
			}
			return nil
		}).
		OnFailure(h.rollbackFirewall)
}

// rollbackFirewall admits the port sshd listens on now. sshd has not been
// moved yet, so without this rule a half-applied ufw policy would refuse
// every new SSH session.
func (h *Hardener) rollbackFirewall(rc execution.RunContext) error {
	current := h.configuredSSHPort()
	if err := h.deps.Firewall.Allow(rc.Context(), current, "tcp"); err != nil {
		return err
	}
	rc.Notef("allowed current SSH port %d/tcp", current)
	return nil
}

func (h *Hardener) aideStep() execution.Step {
	return execution.NewStep(StepAIDE, execution.DegradedContinue).
		Describe("Install AIDE and build the file integrity baseline").
		Do(func(rc execution.RunContext) error {
			if err := h.install(rc, "aide", "aide-common"); err != nil {
				return err
			}
			if h.deps.FS.Exists(AIDEDatabasePath) {
				rc.Notef("baseline %s already present", AIDEDatabasePath)
				return nil
			}
			if _, err := h.exec(rc, "aideinit", "-y", "-f"); err != nil {
				return err
			}
			rc.Notef("baseline written to %s", AIDEDatabasePath)
			return nil
		}).
		Verify(func(execution.RunContext) error {
			if !h.deps.FS.Exists(AIDEDatabasePath) {
				return faults.NewVerificationFailedError(AIDEDatabasePath, "integrity database missing")
			}
			return nil
		})
}

func (h *Hardener) clamavStep() execution.Step {
	return execution.NewStep(StepClamAV, execution.DegradedContinue).
		Describe("Install ClamAV and keep signatures current").
		Do(func(rc execution.RunContext) error {
			if err := h.install(rc, "clamav", "clamav-freshclam"); err != nil {
				return err
			}
			_, err := h.startService(rc, "clamav-freshclam")
			return err
		}).
		Verify(func(rc execution.RunContext) error {
			return h.requireRunning(rc, "clamav-freshclam")
		})
}

func (h *Hardener) rkhunterStep() execution.Step {
	return execution.NewStep(StepRkhunter, execution.DegradedContinue).
		Describe("Install rkhunter and record the file properties baseline").
		Do(func(rc execution.RunContext) error {
			if err := h.install(rc, "rkhunter"); err != nil {
				return err
			}
			_, err := h.exec(rc, "rkhunter", "--propupd", "--nocolors")
			return err
		})
}

func (h *Hardener) apparmorStep() execution.Step {
	return execution.NewStep(StepAppArmor, execution.DegradedContinue).
		Describe("Install AppArmor and load its profiles").
		Do(func(rc execution.RunContext) error {
			if err := h.install(rc, "apparmor", "apparmor-utils"); err != nil {
				return err
			}
			_, err := h.startService(rc, "apparmor")
			return err
		}).
		Verify(func(rc execution.RunContext) error {
			if _, err := h.exec(rc, "aa-status", "--enabled"); err != nil {
				return faults.NewVerificationFailedError("apparmor", "AppArmor is not enabled in the kernel: "+err.Error())
			}
			return nil
		})
}

func (h *Hardener) auditRules() []string {
	return []string{
		"-w /etc/passwd -p wa -k identity",
		"-w /etc/group -p wa -k identity",
		"-w /etc/shadow -p wa -k identity",
		"-w /etc/sudoers -p wa -k scope",
		"-w /etc/sudoers.d/ -p wa -k scope",
		"-w " + h.cfg.SSH.ConfigPath + " -p wa -k sshd",
		"-w /var/log/faillog -p wa -k logins",
		"-w /var/log/lastlog -p wa -k logins",
	}
}

func (h *Hardener) auditdStep() execution.Step {
	return execution.NewStep(StepAuditd, execution.DegradedContinue).
		Describe("Install auditd with watches on identity, sudo and SSH configuration").
		Do(func(rc execution.RunContext) error {
			if err := h.install(rc, "auditd", "audispd-plugins"); err != nil {
				return err
			}
			added, err := h.ensureLines(AuditRulesPath, h.auditRules(), 0o640)
			if err != nil {
				return err
			}
			if added > 0 {
				rc.Notef("added %d audit rule(s) to %s", added, AuditRulesPath)
			}
			if _, err := h.startService(rc, "auditd"); err != nil {
				return err
			}
			_, err = h.exec(rc, "augenrules", "--load")
			return err
		}).
		Verify(func(rc execution.RunContext) error {
			return h.requireRunning(rc, "auditd")
		})
}

// logwatch.conf uses "Key = Value"; the value carries the "= " so the
// directive line reads the way logwatch expects.
var logwatchDirectives = []directive.Directive{
	directive.New("Output", "= mail"),
	directive.New("Detail", "= Med"),
	directive.New("Range", "= yesterday"),
}

func (h *Hardener) logwatchStep() execution.Step {
	return execution.NewStep(StepLogwatch, execution.DegradedContinue).
		Describe("Install logwatch with a daily medium-detail summary").
		Do(func(rc execution.RunContext) error {
			if err := h.install(rc, "logwatch"); err != nil {
				return err
			}
			if _, err := h.ensureFile(LogwatchConfPath, []byte("# Local logwatch overrides\n"), 0o644); err != nil {
				return err
			}
			_, err := h.editor.ApplyAll(LogwatchConfPath, logwatchDirectives...)
			return err
		}).
		Verify(func(execution.RunContext) error {
			return h.editor.Verify(LogwatchConfPath, logwatchDirectives...)
		})
}

// BackupStub is the placeholder backup script. It refuses to run until
// BACKUP_DEST is edited.
const BackupStub = `#!/bin/sh
# Hardening backup placeholder. Set BACKUP_DEST and schedule this script.
set -eu

BACKUP_DEST="CHANGE_ME"

if [ "$BACKUP_DEST" = "CHANGE_ME" ]; then
	echo "hardening-backup: set BACKUP_DEST in $0 first" >&2
	exit 1
fi

tar -czf "$BACKUP_DEST/etc-$(date +%Y%m%d).tar.gz" /etc
`

func (h *Hardener) backupStubStep() execution.Step {
	path := h.cfg.Backup.StubPath
	return execution.NewStep(StepBackupStub, execution.DegradedContinue).
		Describe("Install the backup script placeholder at " + path).
		When(func(execution.RunContext) (bool, string, error) {
			if h.deps.FS.Exists(path) {
				return false, "backup stub already present", nil
			}
			return true, "", nil
		}).
		Do(func(rc execution.RunContext) error {
			created, err := h.ensureFile(path, []byte(BackupStub), 0o750)
			if err != nil {
				return err
			}
			if created {
				rc.Notef("edit BACKUP_DEST in %s", path)
			}
			return nil
		})
}
