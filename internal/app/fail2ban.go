package app

import (
	"bytes"
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/felixgeelhaar/hostharden/internal/domain/execution"
	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
)

// JailLocalPath is the fail2ban local override file.
const JailLocalPath = "/etc/fail2ban/jail.local"

func init() {
	// fail2ban rejects keys that precede the first section header, so
	// [DEFAULT] must be written out explicitly.
	ini.DefaultHeader = true
}

// jailSettings returns the [sshd] keys the plan enforces, in write order.
func (h *Hardener) jailSettings() [][2]string {
	f := h.cfg.Fail2ban
	return [][2]string{
		{"enabled", "true"},
		{"port", strconv.Itoa(h.cfg.SSH.Port)},
		{"backend", "systemd"},
		{"maxretry", strconv.Itoa(f.MaxRetry)},
		{"bantime", f.BanTime},
		{"findtime", f.FindTime},
	}
}

func (h *Hardener) fail2banStep() execution.Step {
	return execution.NewStep(StepFail2ban, execution.Fatal).
		Describe("Install fail2ban with an sshd jail on the SSH port").
		Do(func(rc execution.RunContext) error {
			if err := h.install(rc, "fail2ban"); err != nil {
				return err
			}
			changed, err := h.writeJail()
			if err != nil {
				return err
			}
			if changed {
				rc.Notef("updated [sshd] in %s", JailLocalPath)
			}
			_, err = h.startService(rc, "fail2ban")
			return err
		}).
		Verify(func(rc execution.RunContext) error {
			return h.requireRunning(rc, "fail2ban")
		})
}

// writeJail sets the [sshd] keys in jail.local, leaving every other section
// and key alone. The file is written only when a value differs.
func (h *Hardener) writeJail() (bool, error) {
	existed := h.deps.FS.Exists(JailLocalPath)

	var raw []byte
	if existed {
		var err error
		if raw, err = h.deps.FS.ReadFile(JailLocalPath); err != nil {
			return false, faults.NewConfigAccessError(JailLocalPath, err)
		}
	}
	jail, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, raw)
	if err != nil {
		return false, faults.NewConfigAccessError(JailLocalPath, err)
	}

	sec := jail.Section("sshd")
	changed := false
	for _, kv := range h.jailSettings() {
		if sec.HasKey(kv[0]) && sec.Key(kv[0]).String() == kv[1] {
			continue
		}
		sec.Key(kv[0]).SetValue(kv[1])
		changed = true
	}
	if !changed {
		return false, nil
	}

	if existed && len(raw) > 0 {
		if _, _, err := h.snaps.Ensure(JailLocalPath); err != nil {
			return false, err
		}
	}
	var buf bytes.Buffer
	if _, err := jail.WriteTo(&buf); err != nil {
		return false, faults.NewConfigAccessError(JailLocalPath, err)
	}
	if err := h.deps.FS.MkdirAll("/etc/fail2ban", 0o755); err != nil {
		return false, faults.NewConfigAccessError("/etc/fail2ban", err)
	}
	if err := h.deps.FS.WriteFile(JailLocalPath, buf.Bytes(), 0o644); err != nil {
		return false, faults.NewConfigAccessError(JailLocalPath, err)
	}
	return true, nil
}
