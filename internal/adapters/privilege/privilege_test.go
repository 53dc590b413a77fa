package privilege

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker_IsRoot(t *testing.T) {
	assert.Equal(t, os.Geteuid() == 0, NewChecker().IsRoot())
}

func TestChecker_HasCommand(t *testing.T) {
	c := NewChecker()

	assert.True(t, c.HasCommand("sh"))
	assert.False(t, c.HasCommand("hostharden-no-such-tool"))
}
