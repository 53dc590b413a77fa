package faults

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ErrorIncludesSubjectAndCause(t *testing.T) {
	err := NewConfigAccessError("/etc/ssh/sshd_config", os.ErrPermission)

	assert.Equal(t, "cannot access configuration file [/etc/ssh/sshd_config]: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestError_IsMatchesKindSentinel(t *testing.T) {
	wrapped := fmt.Errorf("step ssh-hardening: %w", NewServiceNotFoundError("ssh", []string{"ssh", "sshd"}))

	assert.ErrorIs(t, wrapped, ErrServiceNotFound)
	assert.NotErrorIs(t, wrapped, ErrServiceAction)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   Kind
		wantOK bool
	}{
		{"classified", NewPackageInstallError([]string{"ufw"}, errors.New("exit 100")), KindPackageInstall, true},
		{"wrapped", fmt.Errorf("outer: %w", NewVerificationFailedError("sshd", "not listening")), KindVerificationFailed, true},
		{"plain", errors.New("boom"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindOf(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestSubjectOf(t *testing.T) {
	err := fmt.Errorf("x: %w", NewPackageInstallError([]string{"aide", "aide-common"}, nil))
	assert.Equal(t, "aide aide-common", SubjectOf(err))
	assert.Empty(t, SubjectOf(errors.New("plain")))
}

func TestNewCommandError(t *testing.T) {
	err := NewCommandError("rkhunter --propupd", errors.New("exit status 1"))

	assert.ErrorIs(t, err, ErrServiceAction)
	assert.Equal(t, "rkhunter --propupd", SubjectOf(err))
	assert.Equal(t, "command failed [rkhunter --propupd]: exit status 1", err.Error())
}

func TestKind_PreRun(t *testing.T) {
	assert.True(t, KindPrivilege.PreRun())
	assert.True(t, KindUnsupportedPlatform.PreRun())
	assert.False(t, KindConfigAccess.PreRun())
}

func TestError_FormatAndSuggestion(t *testing.T) {
	err := NewServiceActionError("restart", "ssh", errors.New("exit status 1")).
		WithSuggestion("Inspect journalctl -u ssh.")

	out := err.Format()
	require.Contains(t, out, "[SERVICE_ACTION] service restart failed")
	assert.Contains(t, out, "Subject: ssh")
	assert.Contains(t, out, "Suggestion: Inspect journalctl -u ssh.")
	assert.Contains(t, out, "Cause: exit status 1")
}
