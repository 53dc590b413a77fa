// Package precondition validates the execution context before any mutation.
package precondition

import (
	"context"
	"os"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/domain/platform"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// PackageManagerCommand is the binary whose presence marks a supported host.
const PackageManagerCommand = "apt-get"

// Checker verifies privileges and platform support.
type Checker struct {
	priv   ports.PrivilegeChecker
	fs     ports.FileSystem
	logger ports.Logger
	uid    func() int
}

// NewChecker creates a Checker.
func NewChecker(priv ports.PrivilegeChecker, fs ports.FileSystem, logger ports.Logger) *Checker {
	return &Checker{priv: priv, fs: fs, logger: logger, uid: os.Geteuid}
}

// Check fails with a privilege error when not root and with an
// unsupported-platform error when apt-get is unavailable. On success it
// returns the detected platform.
func (c *Checker) Check(ctx context.Context) (platform.Platform, error) {
	if !c.priv.IsRoot() {
		return platform.Platform{}, faults.NewPrivilegeError(c.uid())
	}
	if !c.priv.HasCommand(PackageManagerCommand) {
		return platform.Platform{}, faults.NewUnsupportedPlatformError(PackageManagerCommand + " not found on PATH")
	}

	p, err := platform.Detect(c.fs)
	if err != nil {
		c.logger.Warn(ctx, "could not identify distribution", ports.Err(err))
		return p, nil
	}
	if p.Release.ID != "" && !p.Release.DebianFamily() {
		c.logger.Warn(ctx, "distribution is not Debian-family; continuing because apt-get is present",
			ports.F("distribution", p.Release.String()))
	}
	if p.Environment == platform.EnvContainer {
		c.logger.Warn(ctx, "running inside a container; service and firewall changes may not take effect")
	}
	return p, nil
}
