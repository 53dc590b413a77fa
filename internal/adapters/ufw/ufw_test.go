package ufw

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/ports"
	"github.com/felixgeelhaar/hostharden/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const activeStatus = `Status: active

To                         Action      From
--                         ------      ----
2222/tcp                   ALLOW       Anywhere
80/tcp                     DENY        Anywhere
2222/tcp (v6)              ALLOW       Anywhere (v6)
`

func TestFirewall_Commands(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.SetFallback(ports.CommandResult{})
	fw := NewFirewall(runner)
	ctx := context.Background()

	require.NoError(t, fw.SetDefaults(ctx, "deny", "allow"))
	require.NoError(t, fw.Allow(ctx, 2222, "tcp"))
	require.NoError(t, fw.Enable(ctx))

	var lines []string
	for _, c := range runner.Calls() {
		lines = append(lines, c.String())
	}
	assert.Equal(t, []string{
		"ufw default deny incoming",
		"ufw default allow outgoing",
		"ufw allow 2222/tcp",
		"ufw --force enable",
	}, lines)
}

func TestFirewall_Allows(t *testing.T) {
	tests := []struct {
		name   string
		status string
		port   int
		want   bool
	}{
		{name: "allowed", status: activeStatus, port: 2222, want: true},
		{name: "denied rule", status: activeStatus, port: 80, want: false},
		{name: "no rule", status: activeStatus, port: 22, want: false},
		{name: "inactive", status: "Status: inactive\n", port: 2222, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := mocks.NewCommandRunner()
			runner.AddResult("ufw", []string{"status"}, ports.CommandResult{Stdout: tt.status})

			got, err := NewFirewall(runner).Allows(context.Background(), tt.port, "tcp")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirewall_CommandFailure(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("ufw", []string{"--force", "enable"}, ports.CommandResult{
		ExitCode: 1,
		Stderr:   "ERROR: problem running ufw-init",
	})

	err := NewFirewall(runner).Enable(context.Background())

	assert.ErrorIs(t, err, faults.ErrServiceAction)
	assert.Equal(t, "ufw --force enable", faults.SubjectOf(err))
	assert.ErrorContains(t, err, "ERROR: problem running ufw-init")
}

func TestFirewall_StatusFailureIsClassified(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("ufw", []string{"status"}, ports.CommandResult{
		ExitCode: 1,
		Stderr:   "ERROR: Couldn't determine iptables version",
	})

	_, err := NewFirewall(runner).Allows(context.Background(), 2222, "tcp")

	assert.ErrorIs(t, err, faults.ErrServiceAction)
	assert.Equal(t, "ufw status", faults.SubjectOf(err))
}
