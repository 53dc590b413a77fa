// Package platform identifies the host operating system from os-release.
package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/felixgeelhaar/hostharden/internal/ports"
	"gopkg.in/ini.v1"
)

// Paths searched for os-release, in order.
var releasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// Environment is the execution environment of the host.
type Environment string

const (
	EnvNative    Environment = "native"
	EnvContainer Environment = "container"
)

// Release holds the os-release fields hostharden cares about.
type Release struct {
	ID         string   `json:"id" yaml:"id"`
	IDLike     []string `json:"id_like,omitempty" yaml:"id_like,omitempty"`
	VersionID  string   `json:"version_id,omitempty" yaml:"version_id,omitempty"`
	PrettyName string   `json:"pretty_name,omitempty" yaml:"pretty_name,omitempty"`
}

// DebianFamily reports whether the release is Debian or derived from it.
func (r Release) DebianFamily() bool {
	if r.ID == "debian" {
		return true
	}
	for _, like := range r.IDLike {
		if like == "debian" {
			return true
		}
	}
	return false
}

// String returns the pretty name, falling back to ID and version.
func (r Release) String() string {
	if r.PrettyName != "" {
		return r.PrettyName
	}
	return strings.TrimSpace(r.ID + " " + r.VersionID)
}

// ParseRelease parses os-release content. The format is a section-less ini
// file with optionally quoted values.
func ParseRelease(data []byte) (Release, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:      "=",
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return Release{}, fmt.Errorf("parse os-release: %w", err)
	}

	sec := cfg.Section(ini.DefaultSection)
	value := func(key string) string {
		return strings.Trim(sec.Key(key).String(), `"'`)
	}

	r := Release{
		ID:         strings.ToLower(value("ID")),
		VersionID:  value("VERSION_ID"),
		PrettyName: value("PRETTY_NAME"),
	}
	if like := value("ID_LIKE"); like != "" {
		r.IDLike = strings.Fields(strings.ToLower(like))
	}
	if r.ID == "" {
		return Release{}, fmt.Errorf("parse os-release: missing ID")
	}
	return r, nil
}

// Platform contains detected host information.
type Platform struct {
	OS          string      `json:"os" yaml:"os"`
	Arch        string      `json:"arch" yaml:"arch"`
	Environment Environment `json:"environment" yaml:"environment"`
	Release     Release     `json:"release" yaml:"release"`
}

// String returns a one-line summary.
func (p Platform) String() string {
	s := fmt.Sprintf("%s/%s", p.OS, p.Arch)
	if rel := p.Release.String(); rel != "" {
		s += " " + rel
	}
	if p.Environment == EnvContainer {
		s += " (container)"
	}
	return s
}

// Detect reads os-release and container markers through fs. A missing
// os-release is not an error; the Release is left empty.
func Detect(fs ports.FileSystem) (Platform, error) {
	p := Platform{
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		Environment: EnvNative,
	}
	if isContainer(fs) {
		p.Environment = EnvContainer
	}

	for _, path := range releasePaths {
		data, err := fs.ReadFile(path)
		if err != nil {
			continue
		}
		rel, err := ParseRelease(data)
		if err != nil {
			return p, fmt.Errorf("%s: %w", path, err)
		}
		p.Release = rel
		break
	}
	return p, nil
}

func isContainer(fs ports.FileSystem) bool {
	if fs.Exists("/.dockerenv") || fs.Exists("/run/.containerenv") {
		return true
	}
	data, err := fs.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	s := string(data)
	return strings.Contains(s, "docker") || strings.Contains(s, "containerd") || strings.Contains(s, "kubepods")
}
