package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/hostharden/internal/domain/config"
	"github.com/felixgeelhaar/hostharden/internal/domain/platform"
)

type recorder struct {
	errors []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recorder) Failed() bool { return len(r.errors) > 0 }

func TestHostBuilder_Defaults(t *testing.T) {
	t.Parallel()

	h := NewHostBuilder().Build()

	assert.Equal(t, MinimalSSHDConfig, h.FS.Content(SSHDConfigPath))
	assert.True(t, h.FS.Exists(UserKeysPath))
	assert.True(t, h.Privilege.IsRoot())
	assert.True(t, h.Privilege.HasCommand("apt-get"))

	p, err := platform.Detect(h.FS)
	require.NoError(t, err)
	assert.True(t, p.Release.DebianFamily())
	assert.Equal(t, "Debian GNU/Linux 12 (bookworm)", p.Release.String())
}

func TestHostBuilder_Overrides(t *testing.T) {
	t.Parallel()

	h := NewHostBuilder().
		WithoutFile(UserKeysPath).
		WithFile(SSHDConfigPath, string(LoadFixture(t, "sshd_config.debian12"))).
		WithServices("sshd").
		AsUser().
		WithoutAPT().
		Build()

	assert.False(t, h.FS.Exists(UserKeysPath))
	assert.Contains(t, h.FS.Content(SSHDConfigPath), "#PermitRootLogin prohibit-password\n")
	assert.False(t, h.Privilege.IsRoot())
	assert.False(t, h.Privilege.HasCommand("apt-get"))
}

func TestHost_DepsAnswerSSHDTest(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.SSH.Port = 2022
	h := NewHostBuilder().Build()

	deps := h.Deps(cfg, nil)

	result, err := deps.Commands.Run(t.Context(), "sshd", "-T", "-f", SSHDConfigPath)
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "port 2022\n")
	assert.Contains(t, result.Stdout, "passwordauthentication no\n")
	assert.Equal(t, Epoch, deps.Clock())
}

func TestAssertions(t *testing.T) {
	t.Parallel()

	h := NewHostBuilder().Build()
	h.Journal.Record("firewall allow 2222/tcp")
	h.Journal.Record("restart ssh")

	mockT := &recorder{}
	AssertBefore(mockT, h.Journal, "firewall allow 2222/tcp", "restart ssh")
	AssertNotJournaled(mockT, h.Journal, "restart sshd")
	AssertFileEquals(mockT, h.FS, SSHDConfigPath, MinimalSSHDConfig)
	AssertFileContains(mockT, h.FS, SSHDConfigPath, "UsePAM yes")
	AssertSingleActiveLine(mockT, h.FS, SSHDConfigPath, "UsePAM yes")
	assert.False(t, mockT.Failed())

	failing := &recorder{}
	AssertBefore(failing, h.Journal, "restart ssh", "firewall allow 2222/tcp")
	assert.True(t, failing.Failed())
	assert.Contains(t, failing.errors[0], "must precede")
}

func TestWriteTempFile(t *testing.T) {
	t.Parallel()

	path := WriteTempFile(t, "hostharden.yaml", "ssh:\n  port: 2022\n")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ssh:\n  port: 2022\n", string(data))
}

func TestLoadFixtureOrEmpty(t *testing.T) {
	t.Parallel()

	assert.NotEmpty(t, LoadFixtureOrEmpty("jail.local"))
	assert.Nil(t, LoadFixtureOrEmpty("missing"))
}
