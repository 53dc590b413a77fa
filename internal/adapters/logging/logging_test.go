package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/hostharden/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedTime() time.Time {
	return time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Error(ctx, "error", ports.Err(errors.New("boom")))

	assert.Same(t, logger, logger.With(ports.F("k", "v")))
	assert.Equal(t, ports.LevelInfo, logger.Level())
	logger.SetLevel(ports.LevelDebug)
	assert.Equal(t, ports.LevelDebug, logger.Level())
}

func TestConsoleLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithClock(fixedTime))

	logger.Info(context.Background(), "step running",
		ports.F("step", "ssh-hardening"),
		ports.F("reason", "already present"),
	)

	assert.Equal(t, "12:30:45 INFO  step running step=ssh-hardening reason=\"already present\"\n", buf.String())
}

func TestConsoleLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithTimestamp(false), WithLevel(ports.LevelWarn))
	ctx := context.Background()

	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "hidden")
	logger.Warn(ctx, "shown")

	assert.Equal(t, "WARN  shown\n", buf.String())
}

func TestConsoleLogger_WithSharesLevelAndOutput(t *testing.T) {
	var buf bytes.Buffer
	parent := NewConsoleLogger(WithOutput(&buf), WithTimestamp(false))
	child := parent.With(ports.F("run_id", "abc"))

	parent.SetLevel(ports.LevelDebug)
	child.Debug(context.Background(), "derived")
	parent.Debug(context.Background(), "root")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "DEBUG derived run_id=abc", lines[0])
	assert.Equal(t, "DEBUG root", lines[1])
	assert.Equal(t, ports.LevelDebug, child.Level())
}

func TestConsoleLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithJSONFormat(true), WithClock(fixedTime))

	logger.Error(context.Background(), "step action failed",
		ports.F("step", "fail2ban"),
		ports.Err(errors.New("exit status 100")),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "step action failed", entry["msg"])
	assert.Equal(t, "fail2ban", entry["step"])
	assert.Equal(t, "exit status 100", entry["error"])
	assert.Equal(t, "2026-03-01T12:30:45Z", entry["time"])
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, ports.LevelInfo)
	ctx := context.Background()

	logger.Debug(ctx, "filtered")
	logger.With(ports.F("run_id", "r1")).Warn(ctx, "degraded step failed",
		ports.F("step", "clamav"),
		ports.Err(errors.New("freshclam: mirror unreachable")),
	)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "degraded step failed", entry["message"])
	assert.Equal(t, "r1", entry["run_id"])
	assert.Equal(t, "clamav", entry["step"])
	assert.Equal(t, "freshclam: mirror unreachable", entry["error"])
	assert.Contains(t, entry, "time")
}

func TestTee(t *testing.T) {
	var console, file bytes.Buffer
	tee := Tee{
		NewConsoleLogger(WithOutput(&console), WithTimestamp(false), WithLevel(ports.LevelWarn)),
		NewZerologLogger(&file, ports.LevelDebug),
	}

	assert.Equal(t, ports.LevelDebug, tee.Level())

	tee.With(ports.F("step", "aide")).Info(context.Background(), "step running")

	assert.Empty(t, console.String())
	assert.Contains(t, file.String(), `"step":"aide"`)
}
