package cache

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/infinite-skx/cacache/core"
	"github.com/infinite-skx/cacache/internal/contracts"
)

// writeLastVerified persists when as epoch milliseconds to the cache
// root's _lastverified marker, atomically via a temp file under tmp/.
func writeLastVerified(opts Options, root string, when time.Time) error {
	if opts.DryRun {
		return nil
	}
	data := strconv.FormatInt(when.UnixMilli(), 10)
	tmpPath := filepath.Join(tmpRoot(root), uuid.NewString())

	w, err := opts.Filesystem.Create(tmpPath)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(data)); err != nil {
		w.Close()
		opts.Filesystem.Remove(tmpPath)
		return err
	}
	if syncer, ok := w.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			w.Close()
			opts.Filesystem.Remove(tmpPath)
			return err
		}
	}
	if err := w.Close(); err != nil {
		opts.Filesystem.Remove(tmpPath)
		return err
	}
	return opts.Filesystem.Rename(tmpPath, lastVerifiedPath(root))
}

// lastRun reads and parses the cache root's _lastverified marker. Returns
// core.ErrNoLastVerified if the marker does not exist.
func lastRun(fsys contracts.Filesystem, root string) (time.Time, error) {
	f, err := fsys.Open(lastVerifiedPath(root))
	if err != nil {
		if isNotExist(err) {
			return time.Time{}, core.ErrNoLastVerified
		}
		return time.Time{}, err
	}
	raw, err := readAllAndClose(f)
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last-verified marker: %w", err)
	}
	return time.UnixMilli(ms), nil
}
