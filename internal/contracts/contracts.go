// Package contracts defines internal interfaces shared across cacache's
// engine components. These interfaces are intentionally internal to avoid
// exposing implementation contracts as part of the public API.
package contracts

import (
	"io"
	"io/fs"
	"time"

	"github.com/infinite-skx/cacache/core"
)

// Filesystem is the capability the engine uses for every on-disk
// operation. Tests substitute a fake; production code binds to an
// implementation backed by the os package.
type Filesystem interface {
	Stat(path string) (fs.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	// Create opens path for writing, truncating or creating it as needed.
	Create(path string) (io.WriteCloser, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	Remove(path string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
	MkdirAll(path string) error
}

// IntegrityChecker streams a reader and reports whether its content
// matches the given digest, returning the number of bytes read.
type IntegrityChecker interface {
	CheckStream(r io.Reader, integrity core.Integrity) (size int64, err error)
}

// Clock supplies the current time. Overridden in tests for deterministic
// timestamps; production code binds to the real wall clock.
type Clock interface {
	Now() time.Time
}
