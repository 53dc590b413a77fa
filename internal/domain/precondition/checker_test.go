package precondition

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/hostharden/internal/adapters/logging"
	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_NotRoot(t *testing.T) {
	t.Parallel()

	priv := &mocks.PrivilegeChecker{Root: false, Commands: map[string]bool{"apt-get": true}}
	c := NewChecker(priv, mocks.NewFileSystem(), logging.NewNopLogger())
	c.uid = func() int { return 1000 }

	_, err := c.Check(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrPrivilege)
	assert.Contains(t, err.Error(), "uid 1000")
}

func TestChecker_NoPackageManager(t *testing.T) {
	t.Parallel()

	priv := &mocks.PrivilegeChecker{Root: true}
	c := NewChecker(priv, mocks.NewFileSystem(), logging.NewNopLogger())

	_, err := c.Check(context.Background())

	assert.ErrorIs(t, err, faults.ErrUnsupportedPlatform)
}

func TestChecker_PrivilegeCheckedFirst(t *testing.T) {
	t.Parallel()

	priv := &mocks.PrivilegeChecker{Root: false}
	c := NewChecker(priv, mocks.NewFileSystem(), logging.NewNopLogger())

	_, err := c.Check(context.Background())

	assert.ErrorIs(t, err, faults.ErrPrivilege)
}

func TestChecker_Supported(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFile("/etc/os-release", "ID=debian\nVERSION_ID=\"12\"\nPRETTY_NAME=\"Debian GNU/Linux 12 (bookworm)\"\n")
	priv := &mocks.PrivilegeChecker{Root: true, Commands: map[string]bool{"apt-get": true}}

	p, err := NewChecker(priv, fs, logging.NewNopLogger()).Check(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "debian", p.Release.ID)
}

func TestChecker_NonDebianWithAptOnlyWarns(t *testing.T) {
	t.Parallel()

	fs := mocks.NewFileSystem()
	fs.AddFile("/etc/os-release", "ID=fedora\n")
	priv := &mocks.PrivilegeChecker{Root: true, Commands: map[string]bool{"apt-get": true}}

	p, err := NewChecker(priv, fs, logging.NewNopLogger()).Check(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fedora", p.Release.ID)
}
