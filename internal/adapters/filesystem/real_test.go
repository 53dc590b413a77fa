package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/hostharden/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealFileSystem_WriteFile_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshd_config")
	require.NoError(t, os.WriteFile(path, []byte("Port 22\n"), 0o600))

	fs := NewRealFileSystem()
	require.NoError(t, fs.WriteFile(path, []byte("Port 2222\n"), 0o600))

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Port 2222\n", string(data))

	info, err := fs.GetFileInfo(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode.Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestRealFileSystem_CreateExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hardening-backup.sh")
	fs := NewRealFileSystem()

	require.NoError(t, fs.CreateExclusive(path, []byte("#!/bin/sh\n"), 0o750))

	info, err := fs.GetFileInfo(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode.Perm())

	err = fs.CreateExclusive(path, []byte("overwrite"), 0o750)
	assert.True(t, ports.IsExist(err))

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))
}

func TestRealFileSystem_GlobAndExists(t *testing.T) {
	dir := t.TempDir()
	fs := NewRealFileSystem()
	for _, user := range []string{"alice", "bob"} {
		require.NoError(t, fs.MkdirAll(filepath.Join(dir, user, ".ssh"), 0o700))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice", ".ssh", "authorized_keys"), []byte("ssh-ed25519 AAAA"), 0o600))

	matches, err := fs.Glob(filepath.Join(dir, "*", ".ssh", "authorized_keys"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "alice", ".ssh", "authorized_keys")}, matches)

	assert.True(t, fs.Exists(filepath.Join(dir, "bob", ".ssh")))
	assert.False(t, fs.Exists(filepath.Join(dir, "bob", ".ssh", "authorized_keys")))
}
