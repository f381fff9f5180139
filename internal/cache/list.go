package cache

import (
	"sort"

	"github.com/infinite-skx/cacache/core"
)

// Entries enumerates every entry currently retained in the index, without
// running a verification pass. Spec.md lists this as a collaborator used
// by tests; it is exposed here as a real read-only audit operation.
// Results are sorted by Time, most recent first.
func Entries(root string, opts Options) ([]core.Entry, error) {
	opts = opts.withDefaults()

	buckets, err := walkFiles(opts.Filesystem, indexRoot(root))
	if err != nil {
		return nil, err
	}

	var all []core.Entry
	for _, bucketFile := range buckets {
		f, err := opts.Filesystem.Open(bucketFile)
		if err != nil {
			return nil, err
		}
		raw, err := readAllAndClose(f)
		if err != nil {
			return nil, err
		}
		survivors, _ := dedupByKey(parseBucket(raw))
		all = append(all, survivors...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Time != all[j].Time {
			return all[i].Time > all[j].Time
		}
		return all[i].Key < all[j].Key
	})
	return all, nil
}

// Size returns the total number of bytes currently held in the content
// store, independent of a full Verify run.
func Size(root string, opts Options) (int64, error) {
	opts = opts.withDefaults()

	files, err := walkFiles(opts.Filesystem, contentRoot(root))
	if err != nil {
		return 0, err
	}

	var total int64
	for _, path := range files {
		info, err := opts.Filesystem.Stat(path)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
