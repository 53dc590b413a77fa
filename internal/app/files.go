package app

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// ensureFile creates path with initial content when it does not exist yet.
// An existing file is left untouched. It reports whether the file was created.
func (h *Hardener) ensureFile(path string, initial []byte, perm os.FileMode) (bool, error) {
	if h.deps.FS.Exists(path) {
		return false, nil
	}
	if err := h.deps.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, faults.NewConfigAccessError(filepath.Dir(path), err)
	}
	err := h.deps.FS.CreateExclusive(path, initial, perm)
	switch {
	case err == nil:
		return true, nil
	case ports.IsExist(err):
		return false, nil
	default:
		return false, faults.NewConfigAccessError(path, err)
	}
}

// ensureLines appends every line of want that path does not already contain,
// creating the file if needed. Existing lines are never rewritten; an
// existing file is snapshotted before its first change. It returns the
// number of lines added.
func (h *Hardener) ensureLines(path string, want []string, perm os.FileMode) (int, error) {
	created, err := h.ensureFile(path, nil, perm)
	if err != nil {
		return 0, err
	}

	content, err := h.deps.FS.ReadFile(path)
	if err != nil {
		return 0, faults.NewConfigAccessError(path, err)
	}

	present := make(map[string]bool)
	for _, line := range bytes.Split(content, []byte("\n")) {
		present[string(bytes.TrimSpace(line))] = true
	}

	var missing []string
	for _, line := range want {
		if !present[line] {
			missing = append(missing, line)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	if !created && len(content) > 0 {
		if _, _, err := h.snaps.Ensure(path); err != nil {
			return 0, err
		}
	}

	var buf bytes.Buffer
	buf.Write(content)
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		buf.WriteByte('\n')
	}
	for _, line := range missing {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := h.deps.FS.WriteFile(path, buf.Bytes(), perm); err != nil {
		return 0, faults.NewConfigAccessError(path, err)
	}
	return len(missing), nil
}
