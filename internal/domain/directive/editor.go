package directive

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/domain/snapshot"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// Snapshotter captures a file before its first mutation in a run.
type Snapshotter interface {
	Ensure(path string) (snapshot.Snapshot, bool, error)
}

// Editor applies directives to files on a FileSystem.
type Editor struct {
	fs     ports.FileSystem
	snaps  Snapshotter
	logger ports.Logger
}

// NewEditor creates an Editor. snaps is consulted before every write.
func NewEditor(fs ports.FileSystem, snaps Snapshotter) *Editor {
	return &Editor{fs: fs, snaps: snaps}
}

// WithLogger attaches a logger for change events.
func (e *Editor) WithLogger(l ports.Logger) *Editor {
	e.logger = l
	return e
}

// Apply ensures path holds the active line "key value".
func (e *Editor) Apply(path, key, value string) (Change, error) {
	changes, err := e.ApplyAll(path, New(key, value))
	if err != nil {
		return Change{}, err
	}
	return changes[0], nil
}

// ApplyAll applies directives in order with one read and at most one write.
// The file is snapshotted only when at least one directive changes it.
func (e *Editor) ApplyAll(path string, directives ...Directive) ([]Change, error) {
	for _, d := range directives {
		if err := d.Validate(); err != nil {
			return nil, faults.NewConfigAccessError(path, err)
		}
	}

	content, err := e.fs.ReadFile(path)
	if err != nil {
		return nil, faults.NewConfigAccessError(path, err)
	}
	info, err := e.fs.GetFileInfo(path)
	if err != nil {
		return nil, faults.NewConfigAccessError(path, err)
	}

	changes := make([]Change, 0, len(directives))
	dirty := false
	for _, d := range directives {
		var c Change
		content, c = Edit(content, d)
		c.Path = path
		dirty = dirty || c.Changed()
		changes = append(changes, c)
	}
	if !dirty {
		return changes, nil
	}

	snap, _, err := e.snaps.Ensure(path)
	if err != nil {
		return nil, err
	}
	if err := e.fs.WriteFile(path, content, info.Mode.Perm()); err != nil {
		return nil, faults.NewConfigAccessError(path, err)
	}

	for i := range changes {
		if changes[i].Changed() {
			changes[i].Snapshot = snap.Path
			e.log(changes[i])
		}
	}
	return changes, nil
}

// Lookup returns the effective value of key in path.
func (e *Editor) Lookup(path, key string) (string, bool, error) {
	content, err := e.fs.ReadFile(path)
	if err != nil {
		return "", false, faults.NewConfigAccessError(path, err)
	}
	value, ok := Effective(content, key)
	return value, ok, nil
}

// Verify checks that every directive is the effective setting in path.
func (e *Editor) Verify(path string, directives ...Directive) error {
	content, err := e.fs.ReadFile(path)
	if err != nil {
		return faults.NewConfigAccessError(path, err)
	}
	for _, d := range directives {
		got, ok := Effective(content, d.Key)
		if !ok {
			return faults.NewVerificationFailedError(
				fmt.Sprintf("%s: %s", path, d.Line()), "directive has no active line")
		}
		if got != d.Value {
			return faults.NewVerificationFailedError(
				fmt.Sprintf("%s: %s", path, d.Line()),
				fmt.Sprintf("effective value is %q", got),
			)
		}
	}
	return nil
}

func (e *Editor) log(c Change) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(context.Background(), "directive applied",
		ports.F("path", c.Path),
		ports.F("directive", c.Directive.Line()),
		ports.F("action", string(c.Action)),
		ports.F("line", c.Line),
	)
}
