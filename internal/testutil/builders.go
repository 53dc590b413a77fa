package testutil

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/hostharden/internal/app"
	"github.com/felixgeelhaar/hostharden/internal/domain/config"
	"github.com/felixgeelhaar/hostharden/internal/ports"
	"github.com/felixgeelhaar/hostharden/internal/testutil/mocks"
)

// Well-known paths on a fake host.
const (
	SSHDConfigPath = "/etc/ssh/sshd_config"
	OSReleasePath  = "/etc/os-release"
	UserKeysPath   = "/home/alice/.ssh/authorized_keys"
	RootKeysPath   = "/root/.ssh/authorized_keys"
)

// MinimalSSHDConfig is a short sshd_config with the shapes the editor must
// handle: commented defaults, an active wrong value and unrelated lines.
const MinimalSSHDConfig = "#Port 22\n#PermitRootLogin prohibit-password\nPasswordAuthentication yes\nUsePAM yes\n"

const sampleKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIBn alice@laptop\n"

// DefaultServices are the units a freshly installed Debian 12 host exposes
// once the plan's packages are present.
var DefaultServices = []string{"ssh", "fail2ban", "clamav-freshclam", "apparmor", "auditd"}

// Host is an in-memory machine: every port backed by a fake, all sharing
// one Journal.
type Host struct {
	Journal   *mocks.Journal
	FS        *mocks.FileSystem
	Commands  *mocks.CommandRunner
	Packages  *mocks.PackageManager
	Services  *mocks.ServiceRegistry
	Firewall  *mocks.Firewall
	Probe     *mocks.ListenProbe
	Privilege *mocks.PrivilegeChecker
	Hostname  string
}

// HostBuilder builds fake hosts.
type HostBuilder struct {
	files    map[string]string
	order    []string
	services []string
	root     bool
	apt      bool
	hostname string
}

// NewHostBuilder starts from a root shell on a Debian 12 host with an
// unhardened sshd_config, one user key and an existing AIDE database.
func NewHostBuilder() *HostBuilder {
	b := &HostBuilder{
		files:    make(map[string]string),
		services: DefaultServices,
		root:     true,
		apt:      true,
		hostname: "web-1",
	}
	b.WithFile(SSHDConfigPath, MinimalSSHDConfig)
	b.WithFile(UserKeysPath, sampleKey)
	b.WithFile(app.AIDEDatabasePath, "aide-db")
	b.WithFile(OSReleasePath, string(LoadFixtureOrEmpty("os-release.debian12")))
	return b
}

// WithFile adds or replaces a file.
func (b *HostBuilder) WithFile(path, content string) *HostBuilder {
	if _, ok := b.files[path]; !ok {
		b.order = append(b.order, path)
	}
	b.files[path] = content
	return b
}

// WithoutFile removes a file added earlier.
func (b *HostBuilder) WithoutFile(path string) *HostBuilder {
	delete(b.files, path)
	return b
}

// WithServices replaces the units present in the service registry.
func (b *HostBuilder) WithServices(names ...string) *HostBuilder {
	b.services = names
	return b
}

// AsUser makes the process unprivileged.
func (b *HostBuilder) AsUser() *HostBuilder {
	b.root = false
	return b
}

// WithoutAPT removes apt-get from PATH.
func (b *HostBuilder) WithoutAPT() *HostBuilder {
	b.apt = false
	return b
}

// Build returns the host.
func (b *HostBuilder) Build() *Host {
	j := mocks.NewJournal()
	h := &Host{
		Journal:   j,
		FS:        mocks.NewFileSystem().WithJournal(j),
		Commands:  mocks.NewCommandRunner().WithJournal(j),
		Packages:  mocks.NewPackageManager().WithJournal(j),
		Services:  mocks.NewServiceRegistry(b.services...).WithJournal(j),
		Firewall:  mocks.NewFirewall().WithJournal(j),
		Probe:     mocks.NewListenProbe().WithJournal(j),
		Privilege: &mocks.PrivilegeChecker{Root: b.root, Commands: map[string]bool{"apt-get": b.apt}},
		Hostname:  b.hostname,
	}
	for _, p := range b.order {
		if content, ok := b.files[p]; ok {
			h.FS.AddFile(p, content)
		}
	}
	h.Commands.SetFallback(ports.CommandResult{})
	return h
}

// Deps wires the host into app.Deps. The fake sshd reports the settings
// cfg asks for from "sshd -T".
func (h *Host) Deps(cfg *config.Config, logger ports.Logger) app.Deps {
	h.Commands.AddResult("sshd", []string{"-T", "-f", cfg.SSH.ConfigPath},
		ports.CommandResult{Stdout: SSHDEffective(cfg)})
	return app.Deps{
		Commands:  h.Commands,
		FS:        h.FS,
		Packages:  h.Packages,
		Services:  h.Services,
		Firewall:  h.Firewall,
		Probe:     h.Probe,
		Privilege: h.Privilege,
		Logger:    logger,
		Clock:     FixedClock(),
		Hostname:  func() (string, error) { return h.Hostname, nil },
	}
}

// SSHDEffective renders "sshd -T" output matching cfg.
func SSHDEffective(cfg *config.Config) string {
	password := "yes"
	if cfg.SSH.DisablePasswordAuth {
		password = "no"
	}
	lines := []string{
		fmt.Sprintf("port %d", cfg.SSH.Port),
		"permitrootlogin no",
		"passwordauthentication " + password,
		"permitemptypasswords no",
		"pubkeyauthentication yes",
		"x11forwarding no",
		fmt.Sprintf("maxauthtries %d", cfg.SSH.MaxAuthTries),
		fmt.Sprintf("clientaliveinterval %d", cfg.SSH.ClientAliveInterval),
		fmt.Sprintf("clientalivecountmax %d", cfg.SSH.ClientAliveCountMax),
		"usepam yes",
	}
	return strings.Join(lines, "\n") + "\n"
}
