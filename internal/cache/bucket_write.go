package cache

import (
	"sort"

	"github.com/google/uuid"

	"github.com/infinite-skx/cacache/core"
)

// rewriteBucket replaces bucketFile's contents with exactly the given
// entries, or deletes it if none survive. Entries are sorted by key so
// repeated runs over an unchanged bucket produce byte-identical output.
// Writes are atomic: a uniquely-named temp file beside bucketFile is
// written, synced, and renamed over the target.
func rewriteBucket(opts Options, bucketFile string, entries []core.Entry) error {
	if opts.DryRun {
		return nil
	}
	if len(entries) == 0 {
		if err := opts.Filesystem.Remove(bucketFile); err != nil && !isNotExist(err) {
			return err
		}
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	var buf []byte
	for _, e := range entries {
		record, err := formatRecord(e)
		if err != nil {
			return err
		}
		buf = append(buf, record...)
	}

	return atomicWrite(opts, bucketFile, buf)
}

// atomicWrite writes data to a freshly-named temp file next to path and
// renames it into place, fsyncing first where the underlying writer
// supports it.
func atomicWrite(opts Options, path string, data []byte) error {
	tmpPath := path + "." + uuid.NewString() + ".tmp"

	w, err := opts.Filesystem.Create(tmpPath)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
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
	if err := opts.Filesystem.Rename(tmpPath, path); err != nil {
		opts.Filesystem.Remove(tmpPath)
		return err
	}
	return nil
}
