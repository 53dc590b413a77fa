// Package config holds the run configuration of hostharden. Every field has
// a default; a configuration file only overrides what it names. The set of
// hardening tools is fixed and cannot be configured.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is the run configuration.
type Config struct {
	SSH      SSHConfig      `yaml:"ssh" toml:"ssh" json:"ssh"`
	Firewall FirewallConfig `yaml:"firewall" toml:"firewall" json:"firewall"`
	Fail2ban Fail2banConfig `yaml:"fail2ban" toml:"fail2ban" json:"fail2ban"`
	Backup   BackupConfig   `yaml:"backup" toml:"backup" json:"backup"`
	Probe    ProbeConfig    `yaml:"probe" toml:"probe" json:"probe"`
	Log      LogConfig      `yaml:"log" toml:"log" json:"log"`
}

// SSHConfig controls the remote-access hardening step.
type SSHConfig struct {
	Port                int      `yaml:"port" toml:"port" json:"port"`
	ConfigPath          string   `yaml:"config_path" toml:"config_path" json:"config_path"`
	DisablePasswordAuth bool     `yaml:"disable_password_auth" toml:"disable_password_auth" json:"disable_password_auth"`
	MaxAuthTries        int      `yaml:"max_auth_tries" toml:"max_auth_tries" json:"max_auth_tries"`
	ClientAliveInterval int      `yaml:"client_alive_interval" toml:"client_alive_interval" json:"client_alive_interval"`
	ClientAliveCountMax int      `yaml:"client_alive_count_max" toml:"client_alive_count_max" json:"client_alive_count_max"`
	AuthorizedKeysGlobs []string `yaml:"authorized_keys_globs" toml:"authorized_keys_globs" json:"authorized_keys_globs"`
}

// FirewallConfig controls the packet filter step.
type FirewallConfig struct {
	// ExtraAllow lists additional "port/proto" rules, e.g. "443/tcp".
	ExtraAllow []string `yaml:"extra_allow" toml:"extra_allow" json:"extra_allow"`
}

// Fail2banConfig controls the [sshd] jail written to jail.local.
type Fail2banConfig struct {
	BanTime  string `yaml:"bantime" toml:"bantime" json:"bantime"`
	FindTime string `yaml:"findtime" toml:"findtime" json:"findtime"`
	MaxRetry int    `yaml:"maxretry" toml:"maxretry" json:"maxretry"`
}

// BackupConfig controls the backup stub.
type BackupConfig struct {
	StubPath string `yaml:"stub_path" toml:"stub_path" json:"stub_path"`
}

// ProbeConfig controls the SSH handshake check after sshd restarts.
type ProbeConfig struct {
	Host     string `yaml:"host" toml:"host" json:"host"`
	Attempts int    `yaml:"attempts" toml:"attempts" json:"attempts"`
	Interval string `yaml:"interval" toml:"interval" json:"interval"`
	Timeout  string `yaml:"timeout" toml:"timeout" json:"timeout"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	File  string `yaml:"file" toml:"file" json:"file"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		SSH: SSHConfig{
			Port:                2222,
			ConfigPath:          "/etc/ssh/sshd_config",
			DisablePasswordAuth: true,
			MaxAuthTries:        3,
			ClientAliveInterval: 300,
			ClientAliveCountMax: 2,
			AuthorizedKeysGlobs: []string{"/root/.ssh/authorized_keys", "/home/*/.ssh/authorized_keys"},
		},
		Fail2ban: Fail2banConfig{
			BanTime:  "1h",
			FindTime: "10m",
			MaxRetry: 5,
		},
		Backup: BackupConfig{
			StubPath: "/usr/local/bin/hardening-backup.sh",
		},
		Probe: ProbeConfig{
			Host:     "127.0.0.1",
			Attempts: 5,
			Interval: "2s",
			Timeout:  "5s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Rule is a parsed firewall allowance.
type Rule struct {
	Port  int
	Proto string
}

// String renders the rule as "port/proto".
func (r Rule) String() string {
	return strconv.Itoa(r.Port) + "/" + r.Proto
}

// ParseRule parses "443/tcp". A bare port means tcp.
func ParseRule(s string) (Rule, error) {
	portStr, proto, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		proto = "tcp"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid port %q", portStr)
	}
	if err := validPort(port); err != nil {
		return Rule{}, err
	}
	if proto != "tcp" && proto != "udp" {
		return Rule{}, fmt.Errorf("invalid protocol %q", proto)
	}
	return Rule{Port: port, Proto: proto}, nil
}

func validPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", port)
	}
	return nil
}

// ExtraRules returns the parsed firewall.extra_allow rules. Call Validate first.
func (c *Config) ExtraRules() []Rule {
	rules := make([]Rule, 0, len(c.Firewall.ExtraAllow))
	for _, s := range c.Firewall.ExtraAllow {
		if r, err := ParseRule(s); err == nil {
			rules = append(rules, r)
		}
	}
	return rules
}

// ProbeInterval returns the parsed probe interval.
func (c *Config) ProbeInterval() time.Duration {
	d, _ := time.ParseDuration(c.Probe.Interval)
	return d
}

// ProbeTimeout returns the parsed per-attempt probe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Probe.Timeout)
	return d
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs ErrorList

	if err := validPort(c.SSH.Port); err != nil {
		errs.Add("ssh.port", err.Error(), "Pick an unused TCP port, e.g. 2222.")
	}
	if !filepath.IsAbs(c.SSH.ConfigPath) {
		errs.Add("ssh.config_path", "must be an absolute path", "")
	}
	if c.SSH.MaxAuthTries < 1 {
		errs.Add("ssh.max_auth_tries", "must be at least 1", "")
	}
	if c.SSH.ClientAliveInterval < 0 || c.SSH.ClientAliveCountMax < 0 {
		errs.Add("ssh.client_alive", "must not be negative", "")
	}
	if c.SSH.DisablePasswordAuth && len(c.SSH.AuthorizedKeysGlobs) == 0 {
		errs.Add("ssh.authorized_keys_globs", "must not be empty when password authentication is disabled",
			"List where authorized_keys files live so lock-out can be ruled out.")
	}

	for i, s := range c.Firewall.ExtraAllow {
		r, err := ParseRule(s)
		if err != nil {
			errs.Add(fmt.Sprintf("firewall.extra_allow[%d]", i), err.Error(), `Use "port/proto", e.g. "443/tcp".`)
			continue
		}
		if r.Port == c.SSH.Port && r.Proto == "tcp" {
			errs.Add(fmt.Sprintf("firewall.extra_allow[%d]", i), "duplicates the SSH port", "Remove it; the SSH port is always allowed.")
		}
	}

	if c.Fail2ban.MaxRetry < 1 {
		errs.Add("fail2ban.maxretry", "must be at least 1", "")
	}
	if c.Fail2ban.BanTime == "" || c.Fail2ban.FindTime == "" {
		errs.Add("fail2ban", "bantime and findtime must be set", `fail2ban accepts values like "1h" or "600".`)
	}

	if !filepath.IsAbs(c.Backup.StubPath) {
		errs.Add("backup.stub_path", "must be an absolute path", "")
	}

	if c.Probe.Host == "" {
		errs.Add("probe.host", "must not be empty", "")
	}
	if c.Probe.Attempts < 1 {
		errs.Add("probe.attempts", "must be at least 1", "")
	}
	for field, v := range map[string]string{"probe.interval": c.Probe.Interval, "probe.timeout": c.Probe.Timeout} {
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			errs.Add(field, fmt.Sprintf("invalid duration %q", v), `Use Go duration syntax, e.g. "2s".`)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs.Add("log.level", fmt.Sprintf("unknown level %q", c.Log.Level), "Use debug, info, warn or error.")
	}

	return errs.AsError()
}
