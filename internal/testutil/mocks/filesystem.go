package mocks

import (
	"fmt"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/hostharden/internal/ports"
)

type memFile struct {
	data []byte
	mode os.FileMode
}

// FileSystem is a thread-safe in-memory ports.FileSystem.
type FileSystem struct {
	mu         sync.RWMutex
	files      map[string]memFile
	dirs       map[string]bool
	readErrs   map[string]error
	writeErrs  map[string]error
	writeCount map[string]int
	journal    *Journal
}

// NewFileSystem creates a new FileSystem mock.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files:      make(map[string]memFile),
		dirs:       make(map[string]bool),
		readErrs:   make(map[string]error),
		writeErrs:  make(map[string]error),
		writeCount: make(map[string]int),
	}
}

// WithJournal records every successful write in j as "write <path>".
func (fs *FileSystem) WithJournal(j *Journal) *FileSystem {
	fs.journal = j
	return fs
}

// AddFile adds a file with mode 0644.
func (fs *FileSystem) AddFile(p string, content string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[p] = memFile{data: []byte(content), mode: 0o644}
}

// AddDir adds a directory.
func (fs *FileSystem) AddDir(p string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[p] = true
}

// FailRead makes ReadFile on p return err.
func (fs *FileSystem) FailRead(p string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.readErrs[p] = err
}

// FailWrite makes WriteFile and CreateExclusive on p return err.
func (fs *FileSystem) FailWrite(p string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.writeErrs[p] = err
}

// Content returns the content of p, or "" if it does not exist.
func (fs *FileSystem) Content(p string) string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return string(fs.files[p].data)
}

// Mode returns the permission bits recorded for p.
func (fs *FileSystem) Mode(p string) os.FileMode {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.files[p].mode
}

// Writes returns how many times p was written.
func (fs *FileSystem) Writes(p string) int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.writeCount[p]
}

// Paths returns every file path in sorted order.
func (fs *FileSystem) Paths() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]string, 0, len(fs.files))
	for p := range fs.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ReadFile reads a file from the mock filesystem.
func (fs *FileSystem) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if err, ok := fs.readErrs[p]; ok {
		return nil, err
	}
	if f, ok := fs.files[p]; ok {
		return append([]byte(nil), f.data...), nil
	}
	return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
}

// WriteFile writes a file to the mock filesystem.
func (fs *FileSystem) WriteFile(p string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err, ok := fs.writeErrs[p]; ok {
		return err
	}
	fs.files[p] = memFile{data: append([]byte(nil), data...), mode: perm}
	fs.writeCount[p]++
	fs.journal.Record("write %s", p)
	return nil
}

// CreateExclusive creates p only if it does not exist.
func (fs *FileSystem) CreateExclusive(p string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err, ok := fs.writeErrs[p]; ok {
		return err
	}
	if _, ok := fs.files[p]; ok {
		return &os.PathError{Op: "open", Path: p, Err: os.ErrExist}
	}
	fs.files[p] = memFile{data: append([]byte(nil), data...), mode: perm}
	fs.writeCount[p]++
	fs.journal.Record("create %s", p)
	return nil
}

// Exists checks if a file or directory exists.
func (fs *FileSystem) Exists(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, fileExists := fs.files[p]
	return fileExists || fs.dirs[p]
}

// MkdirAll creates a directory.
func (fs *FileSystem) MkdirAll(p string, _ os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[p] = true
	return nil
}

// Glob matches file paths with path.Match semantics.
func (fs *FileSystem) Glob(pattern string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	var out []string
	for p := range fs.files {
		ok, err := path.Match(pattern, p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetFileInfo returns metadata about a file or directory.
func (fs *FileSystem) GetFileInfo(p string) (ports.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if f, ok := fs.files[p]; ok {
		return ports.FileInfo{
			Size:    int64(len(f.data)),
			Mode:    f.mode,
			ModTime: time.Now(),
		}, nil
	}
	if fs.dirs[p] {
		return ports.FileInfo{Mode: os.ModeDir | 0o755, ModTime: time.Now(), IsDir: true}, nil
	}
	return ports.FileInfo{}, fmt.Errorf("stat %s: %w", p, os.ErrNotExist)
}

var _ ports.FileSystem = (*FileSystem)(nil)
