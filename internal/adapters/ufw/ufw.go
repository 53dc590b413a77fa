// Package ufw implements ports.Firewall with the Uncomplicated Firewall CLI.
package ufw

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

const ufw = "ufw"

// Firewall implements ports.Firewall.
type Firewall struct {
	runner ports.CommandRunner
}

// NewFirewall creates a Firewall.
func NewFirewall(runner ports.CommandRunner) *Firewall {
	return &Firewall{runner: runner}
}

// SetDefaults sets the default incoming and outgoing policies ("deny", "allow", "reject").
func (f *Firewall) SetDefaults(ctx context.Context, incoming, outgoing string) error {
	if err := f.run(ctx, "default", incoming, "incoming"); err != nil {
		return err
	}
	return f.run(ctx, "default", outgoing, "outgoing")
}

// Allow opens port/proto. ufw skips rules that already exist.
func (f *Firewall) Allow(ctx context.Context, port int, proto string) error {
	return f.run(ctx, "allow", rule(port, proto))
}

// Enable activates the firewall without the interactive confirmation.
func (f *Firewall) Enable(ctx context.Context) error {
	return f.run(ctx, "--force", "enable")
}

// Allows reports whether ufw is active with an ALLOW rule for port/proto.
func (f *Firewall) Allows(ctx context.Context, port int, proto string) (bool, error) {
	result, err := f.runner.Run(ctx, ufw, "status")
	if err != nil {
		return false, faults.NewCommandError("ufw status", err)
	}
	if !result.Success() {
		return false, faults.NewCommandError("ufw status", errors.New(result.Output()))
	}
	st := parseStatus(result.Stdout)
	return st.active && st.allowed[rule(port, proto)], nil
}

func rule(port int, proto string) string {
	return strconv.Itoa(port) + "/" + proto
}

type status struct {
	active  bool
	allowed map[string]bool
}

// parseStatus reads `ufw status` output:
//
//	Status: active
//
//	To                         Action      From
//	--                         ------      ----
//	2222/tcp                   ALLOW       Anywhere
//	2222/tcp (v6)              ALLOW       Anywhere (v6)
func parseStatus(out string) status {
	st := status{allowed: make(map[string]bool)}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "Status:"); ok {
			st.active = strings.TrimSpace(v) == "active"
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		action := fields[1]
		if len(fields) > 2 && fields[1] == "(v6)" {
			action = fields[2]
		}
		if action == "ALLOW" {
			st.allowed[fields[0]] = true
		}
	}
	return st
}

func (f *Firewall) run(ctx context.Context, args ...string) error {
	call := ufw + " " + strings.Join(args, " ")
	result, err := f.runner.Run(ctx, ufw, args...)
	if err != nil {
		return faults.NewCommandError(call, err)
	}
	if !result.Success() {
		return faults.NewCommandError(call, errors.New(result.Output()))
	}
	return nil
}

var _ ports.Firewall = (*Firewall)(nil)
