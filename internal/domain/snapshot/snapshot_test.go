package snapshot

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sshdConfig = "/etc/ssh/sshd_config"

func fixedClock() func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time { return t }
}

func TestName(t *testing.T) {
	assert.Equal(t, "/etc/ssh/sshd_config.bak.1700000000", Name(sshdConfig, time.Unix(1700000000, 0)))
}

func TestHelper_Snapshot_CopiesContent(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile(sshdConfig, "Port 22\n")
	h := NewHelper(fs).WithClock(fixedClock())

	snap, err := h.Snapshot(sshdConfig)
	require.NoError(t, err)

	assert.Equal(t, sshdConfig, snap.Source)
	assert.Equal(t, sshdConfig+".bak.1700000000", snap.Path)
	assert.Equal(t, int64(8), snap.Size)
	assert.Equal(t, "Port 22\n", fs.Content(snap.Path))
	assert.Equal(t, os.FileMode(0o644), fs.Mode(snap.Path))
}

func TestHelper_Snapshot_TwoCallsNeverOverwrite(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile(sshdConfig, "Port 22\n")
	h := NewHelper(fs).WithClock(fixedClock())

	first, err := h.Snapshot(sshdConfig)
	require.NoError(t, err)

	fs.AddFile(sshdConfig, "Port 2222\n")
	second, err := h.Snapshot(sshdConfig)
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.Equal(t, sshdConfig+".bak.1700000000.1", second.Path)
	assert.Equal(t, "Port 22\n", fs.Content(first.Path), "first snapshot must be untouched")
	assert.Equal(t, "Port 2222\n", fs.Content(second.Path))
	assert.Len(t, h.Taken(), 2)
}

func TestHelper_Snapshot_PreexistingNameIsSkipped(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile(sshdConfig, "Port 22\n")
	fs.AddFile(sshdConfig+".bak.1700000000", "operator backup\n")
	h := NewHelper(fs).WithClock(fixedClock())

	snap, err := h.Snapshot(sshdConfig)
	require.NoError(t, err)

	assert.Equal(t, sshdConfig+".bak.1700000000.1", snap.Path)
	assert.Equal(t, "operator backup\n", fs.Content(sshdConfig+".bak.1700000000"))
}

func TestHelper_Ensure_OncePerFile(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile(sshdConfig, "Port 22\n")
	h := NewHelper(fs).WithClock(fixedClock())

	first, created, err := h.Ensure(sshdConfig)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := h.Ensure(sshdConfig)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, again)
	assert.Len(t, h.Taken(), 1)

	got, ok := h.Lookup(sshdConfig)
	require.True(t, ok)
	assert.Equal(t, first, got)
}

func TestHelper_Snapshot_MissingSource(t *testing.T) {
	h := NewHelper(mocks.NewFileSystem())

	_, err := h.Snapshot("/etc/missing.conf")

	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrConfigAccess)
	assert.Equal(t, "/etc/missing.conf", faults.SubjectOf(err))
}

func TestHelper_Snapshot_WriteFailure(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile(sshdConfig, "Port 22\n")
	fs.FailWrite(sshdConfig+".bak.1700000000", errors.New("read-only file system"))
	h := NewHelper(fs).WithClock(fixedClock())

	_, err := h.Snapshot(sshdConfig)

	assert.ErrorIs(t, err, faults.ErrConfigAccess)
	assert.Empty(t, h.Taken())
}

func TestHelper_Restore(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.AddFile(sshdConfig, "Port 22\n")
	h := NewHelper(fs).WithClock(fixedClock())

	snap, err := h.Snapshot(sshdConfig)
	require.NoError(t, err)
	fs.AddFile(sshdConfig, "Port 2222\nbroken\n")

	require.NoError(t, h.Restore(snap))
	assert.Equal(t, "Port 22\n", fs.Content(sshdConfig))
}
