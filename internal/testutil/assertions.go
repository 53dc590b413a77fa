package testutil

import (
	"strings"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/hostharden/internal/testutil/mocks"
)

// TB is the part of testing.TB the assertions use.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
}

// AssertFileEquals asserts the exact content of a fake file.
func AssertFileEquals(t TB, fs *mocks.FileSystem, path, expected string, msgAndArgs ...interface{}) bool {
	t.Helper()

	if !fs.Exists(path) {
		return assert.Fail(t, "file does not exist: "+path, msgAndArgs...)
	}
	return assert.Equal(t, expected, fs.Content(path), msgAndArgs...)
}

// AssertFileContains asserts that a fake file contains the expected substring.
func AssertFileContains(t TB, fs *mocks.FileSystem, path, expected string, msgAndArgs ...interface{}) bool {
	t.Helper()

	if !fs.Exists(path) {
		return assert.Fail(t, "file does not exist: "+path, msgAndArgs...)
	}
	return assert.Contains(t, fs.Content(path), expected, msgAndArgs...)
}

// AssertSingleActiveLine asserts that line appears exactly once in path.
func AssertSingleActiveLine(t TB, fs *mocks.FileSystem, path, line string) bool {
	t.Helper()

	count := 0
	for _, l := range strings.Split(fs.Content(path), "\n") {
		if l == line {
			count++
		}
	}
	return assert.Equal(t, 1, count, "%s: expected exactly one %q", path, line)
}

// AssertBefore asserts that both entries were journaled and first came
// before second.
func AssertBefore(t TB, j *mocks.Journal, first, second string) bool {
	t.Helper()

	i, k := j.Index(first), j.Index(second)
	if i < 0 {
		return assert.Fail(t, "not journaled: "+first, strings.Join(j.Entries(), "\n"))
	}
	if k < 0 {
		return assert.Fail(t, "not journaled: "+second, strings.Join(j.Entries(), "\n"))
	}
	return assert.Less(t, i, k, "%q must precede %q", first, second)
}

// AssertNotJournaled asserts that entry never happened.
func AssertNotJournaled(t TB, j *mocks.Journal, entry string) bool {
	t.Helper()

	return assert.Equal(t, -1, j.Index(entry), "unexpected journal entry %q", entry)
}
