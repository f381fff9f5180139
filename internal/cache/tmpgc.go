package cache

import "path/filepath"

// garbageCollectTmp removes every direct child of root's tmp directory.
// Absent tmp/ is not an error: it is created (so later phases can use it
// for atomic writes), then left empty. Siblings of tmp/ are untouched.
func garbageCollectTmp(opts Options, root string) error {
	dir := tmpRoot(root)
	if err := opts.Filesystem.MkdirAll(dir); err != nil {
		return err
	}
	entries, err := opts.Filesystem.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if opts.DryRun {
			continue
		}
		if err := opts.Filesystem.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
