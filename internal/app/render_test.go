package app_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/hostharden/internal/app"
	"github.com/felixgeelhaar/hostharden/internal/domain/execution"
	"github.com/felixgeelhaar/hostharden/internal/domain/snapshot"
)

func sampleReport() *execution.Report {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &execution.Report{
		RunID:      "run-1",
		Host:       execution.Host{Hostname: "web-1", Platform: "linux/amd64 Debian GNU/Linux 12 (bookworm)"},
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		State:      execution.RunAborted,
		AbortedBy:  app.StepSSHHardening,
		Outcomes: []execution.Outcome{
			{Ordinal: 1, Name: app.StepFirewall, Criticality: execution.Fatal, Status: execution.StatusSucceeded, Duration: time.Second},
			{
				Ordinal: 2, Name: app.StepSSHHardening, Criticality: execution.Fatal, Status: execution.StatusFailed,
				Error: "SSH is not answering", Notes: []string{"restored /etc/ssh/sshd_config"}, RolledBack: true,
			},
			{Ordinal: 3, Name: app.StepBackupStub, Criticality: execution.DegradedContinue, Status: execution.StatusSkipped, Reason: execution.ReasonAborted},
		},
		Snapshots: []snapshot.Snapshot{
			{Source: sshdConfig, Path: firstSnapshot},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]app.Format{"text": app.FormatText, "JSON": app.FormatJSON, "yml": app.FormatYAML} {
		got, err := app.ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := app.ParseFormat("xml")
	assert.Error(t, err)
}

func TestRenderer_ReportText(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, app.NewRenderer(&buf).Report(sampleReport(), app.FormatText))

	out := buf.String()
	assert.Contains(t, out, "Hardening report for web-1")
	assert.Contains(t, out, "✓ Firewall")
	assert.Contains(t, out, "✗ Ssh Hardening: SSH is not answering")
	assert.Contains(t, out, "rolled back")
	assert.Contains(t, out, "- Backup Stub (skipped: run aborted)")
	assert.Contains(t, out, firstSnapshot)
	assert.Contains(t, out, "Summary: 1 succeeded, 1 failed, 1 skipped in 3s (aborted)")
}

func TestRenderer_ReportJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, app.NewRenderer(&buf).Report(sampleReport(), app.FormatJSON))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "aborted", decoded["state"])
	assert.Len(t, decoded["outcomes"], 3)
}

func TestRenderer_PlanYAML(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer

	require.NoError(t, app.NewRenderer(&buf).Plan(f.hardener().Plan(), app.FormatYAML))

	var entries []app.PlanEntry
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &entries))
	require.Len(t, entries, 13)
	assert.Equal(t, app.StepSSHHardening, entries[4].Name)
	assert.True(t, entries[4].AccessGuard)
	assert.Equal(t, execution.Fatal, entries[4].Criticality)
}

func TestRenderer_PlanText(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer

	require.NoError(t, app.NewRenderer(&buf).Plan(f.hardener().Plan(), app.FormatText))

	assert.Contains(t, buf.String(), "[access guard]")
	assert.Contains(t, buf.String(), "degraded-continue")
}

func TestFatalReminder_NoSnapshot(t *testing.T) {
	report := sampleReport()
	report.Snapshots = nil

	reminder := app.FatalReminder(report, sshdConfig, "ssh")

	assert.Contains(t, reminder, sshdConfig+" was not modified")
}

func TestRenderer_ReportText_EscalatedDegradedStep(t *testing.T) {
	report := sampleReport()
	report.AbortedBy = app.StepAppArmor
	report.Outcomes = []execution.Outcome{{
		Ordinal: 10, Name: app.StepAppArmor, Criticality: execution.DegradedContinue,
		Status: execution.StatusFailed, Error: "no unit found for apparmor [apparmor]", Escalated: true,
	}}
	var buf bytes.Buffer

	require.NoError(t, app.NewRenderer(&buf).Report(report, app.FormatText))

	assert.Contains(t, buf.String(), "✗ Apparmor: no unit found for apparmor")
	assert.Contains(t, buf.String(), "required service missing; run aborted")
	assert.Contains(t, app.FatalReminder(report, sshdConfig, "sshd"),
		"cp "+firstSnapshot+" "+sshdConfig+" && systemctl restart sshd")
}
