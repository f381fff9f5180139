package cache

import (
	"path/filepath"

	"github.com/infinite-skx/cacache/internal/contracts"
)

// walkFiles recursively lists every regular file under dir. Directories
// are descended into but never themselves yielded.
func walkFiles(fsys contracts.Filesystem, dir string) ([]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			sub, err := walkFiles(fsys, path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// pruneEmptyDirs removes, bottom-up, every subdirectory of dir left empty
// after file deletions. dir itself is never removed.
func pruneEmptyDirs(fsys contracts.Filesystem, dir string) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := pruneEmptyDirs(fsys, path); err != nil {
			return err
		}
		sub, err := fsys.ReadDir(path)
		if err != nil {
			return err
		}
		if len(sub) == 0 {
			if err := fsys.Remove(path); err != nil {
				return err
			}
		}
	}
	return nil
}
