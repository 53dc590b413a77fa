package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/hostharden/internal/domain/execution"
)

// Format selects how reports are written.
type Format string

// Supported output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#df8e1d", Dark: "#f9e2af"}
	colorError   = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"}
)

type styles struct {
	title   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(colorPrimary),
		success: r.NewStyle().Foreground(colorSuccess),
		warning: r.NewStyle().Foreground(colorWarning),
		failure: r.NewStyle().Bold(true).Foreground(colorError),
		muted:   r.NewStyle().Foreground(colorMuted),
	}
}

// Renderer writes plans and reports. Colour is used only when the writer
// is a terminal.
type Renderer struct {
	out    io.Writer
	styles styles
	title  cases.Caser
}

// NewRenderer creates a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{
		out:    w,
		styles: newStyles(lipgloss.NewRenderer(w)),
		title:  cases.Title(language.English),
	}
}

// PlanEntry is the serialised form of a planned step.
type PlanEntry struct {
	Ordinal     int                   `json:"ordinal" yaml:"ordinal"`
	Name        string                `json:"name" yaml:"name"`
	Criticality execution.Criticality `json:"criticality" yaml:"criticality"`
	AccessGuard bool                  `json:"access_guard,omitempty" yaml:"access_guard,omitempty"`
	Description string                `json:"description" yaml:"description"`
}

// PlanEntries lists the steps of plan in order.
func PlanEntries(plan *execution.Plan) []PlanEntry {
	steps := plan.Steps()
	entries := make([]PlanEntry, 0, len(steps))
	for i, s := range steps {
		entries = append(entries, PlanEntry{
			Ordinal:     i + 1,
			Name:        s.Name(),
			Criticality: s.Criticality(),
			AccessGuard: s.IsAccessGuard(),
			Description: s.Description(),
		})
	}
	return entries
}

// Plan writes the ordered step list.
func (r *Renderer) Plan(plan *execution.Plan, format Format) error {
	entries := PlanEntries(plan)
	if format != FormatText {
		return r.encode(entries, format)
	}

	r.printf("%s\n\n", r.styles.title.Render("Hardening plan"))
	for _, e := range entries {
		crit := r.styles.muted.Render(string(e.Criticality))
		if e.Criticality == execution.Fatal {
			crit = r.styles.warning.Render(string(e.Criticality))
		}
		guard := ""
		if e.AccessGuard {
			guard = " " + r.styles.warning.Render("[access guard]")
		}
		r.printf("  %2d. %-24s %s%s\n", e.Ordinal, e.Name, crit, guard)
		r.printf("      %s\n", r.styles.muted.Render(e.Description))
	}
	return nil
}

// Report writes a run report.
func (r *Renderer) Report(report *execution.Report, format Format) error {
	if format != FormatText {
		return r.encode(report, format)
	}

	header := "Hardening report"
	if report.Host.Hostname != "" {
		header += " for " + report.Host.Hostname
	}
	r.printf("%s\n", r.styles.title.Render(header))
	if report.Host.Platform != "" {
		r.printf("%s\n", r.styles.muted.Render(report.Host.Platform))
	}
	r.printf("%s\n\n", r.styles.muted.Render("run "+report.RunID))

	for _, o := range report.Outcomes {
		r.outcome(o)
	}

	if len(report.Snapshots) > 0 {
		r.printf("\nSnapshots\n")
		for _, s := range report.Snapshots {
			r.printf("  %s\n", s.Path)
		}
	}

	counts := report.Counts()
	summary := fmt.Sprintf("%d succeeded, %d failed, %d skipped in %s",
		counts[execution.StatusSucceeded], counts[execution.StatusFailed],
		counts[execution.StatusSkipped], report.Duration().Round(time.Millisecond))
	switch {
	case report.Succeeded():
		summary = r.styles.success.Render("Summary: " + summary)
	default:
		summary = r.styles.failure.Render("Summary: " + summary + " (" + string(report.State) + ")")
	}
	r.printf("\n%s\n", summary)
	return nil
}

func (r *Renderer) outcome(o execution.Outcome) {
	name := r.displayName(o.Name)
	switch o.Status {
	case execution.StatusSucceeded:
		r.printf("  %s %s %s\n", r.styles.success.Render("✓"), name,
			r.styles.muted.Render("("+o.Duration.Round(time.Millisecond).String()+")"))
	case execution.StatusSkipped:
		r.printf("  %s %s %s\n", r.styles.muted.Render("-"), name,
			r.styles.muted.Render("(skipped: "+o.Reason+")"))
	case execution.StatusFailed:
		mark := r.styles.warning.Render("!")
		if o.Fatal() {
			mark = r.styles.failure.Render("✗")
		}
		r.printf("  %s %s: %s\n", mark, name, o.Error)
	default:
		r.printf("  ? %s (%s)\n", name, o.Status)
	}
	for _, n := range o.Notes {
		r.printf("      %s\n", r.styles.muted.Render(n))
	}
	if o.Escalated {
		r.printf("      %s\n", r.styles.failure.Render("required service missing; run aborted"))
	}
	if o.RolledBack {
		r.printf("      %s\n", r.styles.warning.Render("rolled back"))
	}
	if o.RollbackError != "" {
		r.printf("      %s\n", r.styles.failure.Render("rollback failed: "+o.RollbackError))
	}
}

// displayName turns "ssh-hardening" into "Ssh Hardening".
func (r *Renderer) displayName(name string) string {
	return r.title.String(strings.ReplaceAll(name, "-", " "))
}

func (r *Renderer) encode(v interface{}, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func (r *Renderer) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// FatalReminder tells the operator which step aborted the run and how to
// put the access configuration back by hand, restarting unit. It returns
// "" when the run did not fail fatally.
func FatalReminder(report *execution.Report, accessConfigPath, unit string) string {
	o, ok := report.FatalFailure()
	if !ok {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "step %q failed: %s\n", o.Name, o.Error)
	for _, s := range report.Snapshots {
		if s.Source != accessConfigPath {
			continue
		}
		fmt.Fprintf(&b, "The original %s is saved at %s.\n", accessConfigPath, s.Path)
		fmt.Fprintf(&b, "To restore it: cp %s %s && systemctl restart %s\n", s.Path, accessConfigPath, unit)
		return b.String()
	}
	fmt.Fprintf(&b, "%s was not modified.\n", accessConfigPath)
	return b.String()
}
