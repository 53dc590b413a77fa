package ports

import (
	"errors"
	"os"
	"time"
)

// ErrExist is returned by FileSystem.CreateExclusive when the path is taken.
var ErrExist = os.ErrExist

// FileInfo contains file metadata.
type FileInfo struct {
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
}

// FileSystem provides the file operations the engine needs.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	// WriteFile replaces path atomically; readers never observe a partial file.
	WriteFile(path string, data []byte, perm os.FileMode) error
	// CreateExclusive creates path with data and fails with ErrExist if the
	// path already exists. It never truncates an existing file.
	CreateExclusive(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	MkdirAll(path string, perm os.FileMode) error
	Glob(pattern string) ([]string, error)
	GetFileInfo(path string) (FileInfo, error)
}

// IsExist reports whether err signals that a path already exists.
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}
