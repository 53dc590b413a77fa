// Package testutil provides test helpers and utilities for hostharden tests.
package testutil

import (
	"embed"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// Epoch is the instant FixedClock returns; snapshots taken under it are
// named "<path>.bak.1700000000".
var Epoch = time.Unix(1700000000, 0)

// FixedClock returns a clock frozen at Epoch.
func FixedClock() func() time.Time {
	return func() time.Time { return Epoch }
}

// WriteTempFile writes content to filename inside a fresh temp directory.
func WriteTempFile(t *testing.T, filename, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), filename)
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err, "failed to write temp file: %s", filename)

	return path
}

// LoadFixture loads a fixture file from the embedded fixtures directory.
func LoadFixture(t *testing.T, name string) []byte {
	t.Helper()

	content, err := fixturesFS.ReadFile("fixtures/" + name)
	require.NoError(t, err, "failed to load fixture: %s", name)

	return content
}

// LoadFixtureOrEmpty loads a fixture file, returning nil if it doesn't exist.
func LoadFixtureOrEmpty(name string) []byte {
	content, err := fixturesFS.ReadFile("fixtures/" + name)
	if err != nil {
		return nil
	}
	return content
}
