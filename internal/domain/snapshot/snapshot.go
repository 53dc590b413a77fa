// Package snapshot takes timestamped, never-overwritten copies of files
// before they are mutated, so every run leaves a concrete rollback artifact.
package snapshot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// maxDisambiguators bounds the ".N" suffix search on name collisions.
const maxDisambiguators = 1000

// Snapshot is an immutable copy of a file's content at a point in time.
type Snapshot struct {
	Source    string    `json:"source" yaml:"source"`
	Path      string    `json:"path" yaml:"path"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Size      int64     `json:"size" yaml:"size"`
}

// Name returns the base snapshot name for source at t: source.bak.<unix>.
func Name(source string, t time.Time) string {
	return source + ".bak." + strconv.FormatInt(t.Unix(), 10)
}

// Helper creates snapshots and remembers which files were captured in this run.
type Helper struct {
	fs     ports.FileSystem
	now    func() time.Time
	logger ports.Logger

	mu    sync.Mutex
	taken []Snapshot
	bySrc map[string]Snapshot
}

// NewHelper creates a Helper writing through fs.
func NewHelper(fs ports.FileSystem) *Helper {
	return &Helper{
		fs:    fs,
		now:   time.Now,
		bySrc: make(map[string]Snapshot),
	}
}

// WithClock replaces the time source.
func (h *Helper) WithClock(now func() time.Time) *Helper {
	h.now = now
	return h
}

// WithLogger attaches a logger that announces every snapshot path.
func (h *Helper) WithLogger(l ports.Logger) *Helper {
	h.logger = l
	return h
}

// Snapshot copies path to a fresh snapshot file. Every call creates a new
// snapshot; an existing file is never overwritten.
func (h *Helper) Snapshot(path string) (Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.take(path)
}

// Ensure returns the snapshot already taken for path in this run, or takes
// one. The boolean is true when a new snapshot was created.
func (h *Helper) Ensure(path string) (Snapshot, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if snap, ok := h.bySrc[path]; ok {
		return snap, false, nil
	}
	snap, err := h.take(path)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Lookup returns the first snapshot taken for path in this run.
func (h *Helper) Lookup(path string) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap, ok := h.bySrc[path]
	return snap, ok
}

// Taken returns every snapshot created in this run, oldest first.
func (h *Helper) Taken() []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Snapshot, len(h.taken))
	copy(out, h.taken)
	return out
}

// Restore writes the snapshot content back over its source file.
func (h *Helper) Restore(snap Snapshot) error {
	data, err := h.fs.ReadFile(snap.Path)
	if err != nil {
		return faults.NewConfigAccessError(snap.Path, err)
	}
	info, err := h.fs.GetFileInfo(snap.Path)
	if err != nil {
		return faults.NewConfigAccessError(snap.Path, err)
	}
	if err := h.fs.WriteFile(snap.Source, data, info.Mode.Perm()); err != nil {
		return faults.NewConfigAccessError(snap.Source, err)
	}
	return nil
}

// take must be called with h.mu held.
func (h *Helper) take(path string) (Snapshot, error) {
	data, err := h.fs.ReadFile(path)
	if err != nil {
		return Snapshot{}, faults.NewConfigAccessError(path, err)
	}
	info, err := h.fs.GetFileInfo(path)
	if err != nil {
		return Snapshot{}, faults.NewConfigAccessError(path, err)
	}

	created := h.now()
	base := Name(path, created)
	target := base
	for i := 1; ; i++ {
		err := h.fs.CreateExclusive(target, data, info.Mode.Perm())
		if err == nil {
			break
		}
		if !ports.IsExist(err) {
			return Snapshot{}, faults.NewConfigAccessError(target, err)
		}
		if i > maxDisambiguators {
			return Snapshot{}, faults.NewConfigAccessError(base,
				fmt.Errorf("no free snapshot name after %d attempts", maxDisambiguators))
		}
		target = fmt.Sprintf("%s.%d", base, i)
	}

	snap := Snapshot{Source: path, Path: target, CreatedAt: created, Size: int64(len(data))}
	h.taken = append(h.taken, snap)
	if _, ok := h.bySrc[path]; !ok {
		h.bySrc[path] = snap
	}
	if h.logger != nil {
		h.logger.Info(context.Background(), "snapshot created",
			ports.F("source", path), ports.F("snapshot", target))
	}
	return snap, nil
}
