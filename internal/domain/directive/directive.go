// Package directive edits line-oriented "KEY VALUE" configuration files
// such as sshd_config. Edits are idempotent and touch exactly one line.
//
// For each key the first line matching
//
//	^[ \t]*(#+[ \t]*)?KEY([ \t]|$)
//
// is authoritative: it is rewritten in place to "KEY VALUE", keeping its
// indentation and line terminator. When no line matches, "KEY VALUE" is
// appended as a new trailing line. Later lines matching the same key are
// left untouched; a file with duplicated keys is reported as-is rather
// than normalised.
package directive

import (
	"fmt"
	"regexp"
	"strings"
)

// Directive is a key and the value it must carry.
type Directive struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// New creates a Directive.
func New(key, value string) Directive {
	return Directive{Key: key, Value: value}
}

// Line returns the active configuration line for d.
func (d Directive) Line() string {
	return d.Key + " " + d.Value
}

// String implements fmt.Stringer.
func (d Directive) String() string {
	return d.Line()
}

// Validate rejects keys and values that cannot be represented on one line.
func (d Directive) Validate() error {
	if d.Key == "" {
		return fmt.Errorf("directive key is empty")
	}
	if strings.ContainsAny(d.Key, " \t\r\n#") {
		return fmt.Errorf("directive key %q contains whitespace or comment marker", d.Key)
	}
	if strings.ContainsAny(d.Value, "\r\n") {
		return fmt.Errorf("directive %s value contains a line break", d.Key)
	}
	return nil
}

// Action describes what an edit did to a file.
type Action string

const (
	ActionUnchanged Action = "unchanged"
	ActionReplaced  Action = "replaced"
	ActionAppended  Action = "appended"
)

// Change records the outcome of applying one directive.
type Change struct {
	Path      string    `json:"path" yaml:"path"`
	Directive Directive `json:"directive" yaml:"directive"`
	Action    Action    `json:"action" yaml:"action"`
	Line      int       `json:"line" yaml:"line"` // 1-based line number of the active line
	Previous  string    `json:"previous,omitempty" yaml:"previous,omitempty"`
	Snapshot  string    `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

// Changed reports whether the file content was modified.
func (c Change) Changed() bool {
	return c.Action != ActionUnchanged
}

// Occurrence is one line of a file that matches a key.
type Occurrence struct {
	Line      int
	Commented bool
	Value     string
}

func matcher(key string) *regexp.Regexp {
	return regexp.MustCompile(`^([ \t]*)(#+[ \t]*)?` + regexp.QuoteMeta(key) + `([ \t]|$)`)
}

// splitLines splits content into lines that keep their terminators, so
// joining the result reproduces content byte for byte.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.SplitAfter(string(content), "\n")
}

// body strips the line terminator ("\n" or "\r\n").
func body(line string) (text, term string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}

// Edit applies d to content and returns the new content. It performs no I/O.
func Edit(content []byte, d Directive) ([]byte, Change) {
	lines := splitLines(content)
	re := matcher(d.Key)

	for i, line := range lines {
		text, term := body(line)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		want := m[1] + d.Line()
		change := Change{Directive: d, Line: i + 1, Previous: text}
		if text == want {
			change.Action = ActionUnchanged
			change.Previous = ""
			return content, change
		}

		lines[i] = want + term
		change.Action = ActionReplaced
		return []byte(strings.Join(lines, "")), change
	}

	var b strings.Builder
	b.Grow(len(content) + len(d.Line()) + 2)
	b.Write(content)
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(d.Line())
	b.WriteByte('\n')

	// SplitAfter leaves an empty final element when content ends in "\n".
	line := len(lines) + 1
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		line--
	}
	return []byte(b.String()), Change{Directive: d, Action: ActionAppended, Line: line}
}

// Inspect returns every line of content matching key, in file order.
func Inspect(content []byte, key string) []Occurrence {
	re := matcher(key)
	var out []Occurrence
	for i, line := range splitLines(content) {
		text, _ := body(line)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		rest := strings.TrimSpace(text[len(m[0]):])
		out = append(out, Occurrence{
			Line:      i + 1,
			Commented: m[2] != "",
			Value:     rest,
		})
	}
	return out
}

// Effective returns the value of the first uncommented line for key.
func Effective(content []byte, key string) (string, bool) {
	for _, occ := range Inspect(content, key) {
		if !occ.Commented {
			return occ.Value, true
		}
	}
	return "", false
}
