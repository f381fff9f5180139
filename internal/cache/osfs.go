package cache

import (
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/infinite-skx/cacache/internal/contracts"
)

// osFilesystem binds contracts.Filesystem to the os package. It is the
// default filesystem used by Verify when the caller supplies none.
type osFilesystem struct{}

var _ contracts.Filesystem = osFilesystem{}

func (osFilesystem) Stat(path string) (fs.FileInfo, error) {
	if err := ensureCacheFileIfExists(path); err != nil {
		return nil, err
	}
	return os.Stat(path)
}

func (osFilesystem) Open(path string) (io.ReadCloser, error) {
	if err := ensureCacheFile(path); err != nil {
		return nil, err
	}
	//nolint:gosec // G304: path is derived from a digest hash or bucket hash, not user input
	return os.Open(path)
}

func (osFilesystem) Create(path string) (io.WriteCloser, error) {
	//nolint:gosec // G304: path is derived from a digest hash or bucket hash, not user input
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
}

func (osFilesystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

func (osFilesystem) Remove(path string) error {
	return os.Remove(path)
}

func (osFilesystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (osFilesystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (osFilesystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o700)
}

// realClock binds contracts.Clock to time.Now.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
