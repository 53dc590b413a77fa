// Package privilege reports process privileges and tool availability.
package privilege

import (
	"os"
	"os/exec"

	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// Checker implements ports.PrivilegeChecker for the current process.
type Checker struct{}

// NewChecker creates a Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// IsRoot reports whether the effective UID is 0.
func (c *Checker) IsRoot() bool {
	return os.Geteuid() == 0
}

// HasCommand reports whether name resolves on PATH.
func (c *Checker) HasCommand(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

var _ ports.PrivilegeChecker = (*Checker)(nil)
