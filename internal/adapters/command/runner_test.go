package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealRunner_Run_Success(t *testing.T) {
	result, err := NewRealRunner().Run(context.Background(), "echo", "hello")

	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "hello\n", result.Stdout)
}

func TestRealRunner_Run_NonZeroExitIsNotAnError(t *testing.T) {
	result, err := NewRealRunner().Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")

	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "broken", result.Output())
}

func TestRealRunner_Run_NotFound(t *testing.T) {
	_, err := NewRealRunner().Run(context.Background(), "nonexistent-command-12345")

	assert.Error(t, err)
}

func TestRealRunner_WithEnv(t *testing.T) {
	runner := NewRealRunner(WithEnv("DEBIAN_FRONTEND=noninteractive"))

	result, err := runner.Run(context.Background(), "sh", "-c", "printf %s \"$DEBIAN_FRONTEND\"")

	require.NoError(t, err)
	assert.Equal(t, "noninteractive", result.Stdout)
}
