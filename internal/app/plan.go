package app

import (
	"github.com/felixgeelhaar/hostharden/internal/domain/execution"
)

// Step names, in plan order.
const (
	StepSnapshotAccessConfig = "snapshot-access-config"
	StepSystemUpdate         = "system-update"
	StepUnattendedUpgrades   = "unattended-upgrades"
	StepFirewall             = "firewall"
	StepSSHHardening         = "ssh-hardening"
	StepFail2ban             = "fail2ban"
	StepAIDE                 = "aide"
	StepClamAV               = "clamav"
	StepRkhunter             = "rkhunter"
	StepAppArmor             = "apparmor"
	StepAuditd               = "auditd"
	StepLogwatch             = "logwatch"
	StepBackupStub           = "backup-stub"
)

// Plan returns the fixed, ordered hardening plan.
//
// Everything that can lock an operator out is Fatal and runs first: the
// access configuration is captured before any mutation, the firewall admits
// the new SSH port before sshd is restarted on it, and fail2ban is tuned to
// the same port. Detection and audit tooling follows as DegradedContinue.
func (h *Hardener) Plan() *execution.Plan {
	return execution.NewPlan(
		h.snapshotAccessConfigStep(),
		h.systemUpdateStep(),
		h.unattendedUpgradesStep(),
		h.firewallStep(),
		h.sshHardeningStep(),
		h.fail2banStep(),
		h.aideStep(),
		h.clamavStep(),
		h.rkhunterStep(),
		h.apparmorStep(),
		h.auditdStep(),
		h.logwatchStep(),
		h.backupStubStep(),
	)
}
