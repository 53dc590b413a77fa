package app

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/hostharden/internal/domain/directive"
	"github.com/felixgeelhaar/hostharden/internal/domain/execution"
	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
)

const (
	sshService     = "ssh"
	defaultSSHPort = 22
)

// sshDirectives returns the sshd_config settings the plan enforces.
func (h *Hardener) sshDirectives() []directive.Directive {
	ssh := h.cfg.SSH
	ds := []directive.Directive{
		directive.New("Port", strconv.Itoa(ssh.Port)),
		directive.New("PermitRootLogin", "no"),
	}
	if ssh.DisablePasswordAuth {
		ds = append(ds, directive.New("PasswordAuthentication", "no"))
	}
	return append(ds,
		directive.New("PermitEmptyPasswords", "no"),
		directive.New("PubkeyAuthentication", "yes"),
		directive.New("X11Forwarding", "no"),
		directive.New("MaxAuthTries", strconv.Itoa(ssh.MaxAuthTries)),
		directive.New("ClientAliveInterval", strconv.Itoa(ssh.ClientAliveInterval)),
		directive.New("ClientAliveCountMax", strconv.Itoa(ssh.ClientAliveCountMax)),
	)
}

func (h *Hardener) sshHardeningStep() execution.Step {
	path := h.cfg.SSH.ConfigPath
	return execution.NewStep(StepSSHHardening, execution.Fatal).
		Describe(fmt.Sprintf("Harden %s, move SSH to port %d and confirm it still answers", path, h.cfg.SSH.Port)).
		GuardsAccess().
		Do(h.hardenSSH).
		Verify(h.verifySSH).
		OnFailure(h.rollbackSSH)
}

func (h *Hardener) hardenSSH(rc execution.RunContext) error {
	ctx := rc.Context()
	path := h.cfg.SSH.ConfigPath
	port := h.cfg.SSH.Port

	if h.cfg.SSH.DisablePasswordAuth {
		keys, err := h.authorizedKeys()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return faults.NewVerificationFailedError("authorized_keys",
				"refusing to disable password authentication: no authorized_keys file with keys").
				WithSuggestion("Install a public key for an administrative user, or set ssh.disable_password_auth: false")
		}
		rc.Notef("key-based access available via %s", strings.Join(keys, ", "))
	}

	allowed, err := h.deps.Firewall.Allows(ctx, port, "tcp")
	if err != nil {
		return err
	}
	if !allowed {
		return faults.NewVerificationFailedError(fmt.Sprintf("%d/tcp", port),
			"refusing to move SSH: the firewall does not admit the new port")
	}

	changes, err := h.editor.ApplyAll(path, h.sshDirectives()...)
	if err != nil {
		return err
	}
	changed := 0
	for _, c := range changes {
		if c.Changed() {
			changed++
		}
	}
	rc.Notef("%d of %d directives changed", changed, len(changes))

	if _, err := h.exec(rc, "sshd", "-t", "-f", path); err != nil {
		return faults.NewVerificationFailedError(path, "sshd rejected the edited configuration: "+err.Error())
	}

	_, err = h.startService(rc, sshService, "ssh", "sshd")
	return err
}

// authorizedKeys returns the non-empty authorized_keys files matched by the
// configured globs.
func (h *Hardener) authorizedKeys() ([]string, error) {
	var found []string
	for _, pattern := range h.cfg.SSH.AuthorizedKeysGlobs {
		matches, err := h.deps.FS.Glob(pattern)
		if err != nil {
			return nil, faults.NewConfigAccessError(pattern, err)
		}
		for _, m := range matches {
			info, err := h.deps.FS.GetFileInfo(m)
			if err != nil || info.IsDir || info.Size == 0 {
				continue
			}
			found = append(found, m)
		}
	}
	return found, nil
}

func (h *Hardener) verifySSH(rc execution.RunContext) error {
	ctx := rc.Context()
	if err := h.requireRunning(rc, sshService); err != nil {
		return err
	}

	addr := net.JoinHostPort(h.cfg.Probe.Host, strconv.Itoa(h.cfg.SSH.Port))
	fingerprint, err := h.deps.Probe.Probe(ctx, addr)
	if err != nil {
		return faults.NewVerificationFailedError(addr, "SSH is not answering: "+err.Error())
	}
	rc.Notef("%s answered with host key %s", addr, fingerprint)

	return h.verifyEffectiveSSH(rc)
}

// verifyEffectiveSSH compares the settings sshd reports with "sshd -T"
// against the enforced directives. Include files and Match blocks can
// override the main file, which Editor.Verify cannot see.
func (h *Hardener) verifyEffectiveSSH(rc execution.RunContext) error {
	result, err := h.exec(rc, "sshd", "-T", "-f", h.cfg.SSH.ConfigPath)
	if err != nil {
		return faults.NewVerificationFailedError(h.cfg.SSH.ConfigPath, "cannot read effective sshd settings: "+err.Error())
	}
	effective := parseSSHDTest(result.Stdout)
	for _, d := range h.sshDirectives() {
		key := strings.ToLower(d.Key)
		values := effective[key]
		if !containsFold(values, d.Value) {
			return faults.NewVerificationFailedError(d.Line(),
				fmt.Sprintf("sshd reports %s %s", key, strings.Join(values, ",")))
		}
	}
	return nil
}

// parseSSHDTest parses "sshd -T" output: one lowercase "key value" per line.
// Keys such as port may repeat.
func parseSSHDTest(out string) map[string][]string {
	settings := make(map[string][]string)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		if !ok {
			continue
		}
		settings[key] = append(settings[key], strings.TrimSpace(value))
	}
	return settings
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// rollbackSSH restores the access configuration captured before the run,
// reopens the port it names and restarts sshd on it.
func (h *Hardener) rollbackSSH(rc execution.RunContext) error {
	ctx := rc.Context()
	path := h.cfg.SSH.ConfigPath

	snap, ok := h.snaps.Lookup(path)
	if !ok {
		rc.Notef("no snapshot of %s; nothing to restore", path)
		return nil
	}
	if err := h.snaps.Restore(snap); err != nil {
		return err
	}
	rc.Notef("restored %s from %s", path, snap.Path)

	port := h.configuredSSHPort()
	if err := h.deps.Firewall.Allow(ctx, port, "tcp"); err != nil {
		return err
	}
	rc.Notef("allowed %d/tcp", port)

	svc, ok := h.services.Cached(sshService)
	if !ok {
		return nil
	}
	if err := h.services.Restart(ctx, svc); err != nil {
		return err
	}
	rc.Notef("%s restarted with the restored configuration", svc.Unit)
	return nil
}

// configuredSSHPort returns the port the access configuration currently
// names, or 22 when it names none or cannot be read.
func (h *Hardener) configuredSSHPort() int {
	value, ok, err := h.editor.Lookup(h.cfg.SSH.ConfigPath, "Port")
	if err != nil || !ok {
		return defaultSSHPort
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return defaultSSHPort
	}
	return port
}
