package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/infinite-skx/cacache/core"
)

// garbageCollectContent walks every blob in the content store and deletes
// any file whose path is not in retained (the set of paths RebuildIndex
// resolved for surviving entries). Must run after rebuildIndex: running it
// first could delete blobs still referenced by soon-to-be-retained
// entries.
func garbageCollectContent(ctx context.Context, opts Options, root string, retained *retainedSet) (core.Stats, error) {
	files, err := walkFiles(opts.Filesystem, contentRoot(root))
	if err != nil {
		return core.Stats{}, fmt.Errorf("enumerate content store: %w", err)
	}

	acc := &statsAccumulator{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, path := range files {
		path := path
		if retained.has(path) {
			continue
		}
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return reclaimOrphanBlob(opts, path, acc)
		})
	}

	if err := g.Wait(); err != nil {
		return core.Stats{}, err
	}

	if err := pruneEmptyDirs(opts.Filesystem, contentRoot(root)); err != nil {
		return core.Stats{}, fmt.Errorf("prune content directories: %w", err)
	}

	return acc.snapshot(), nil
}

func reclaimOrphanBlob(opts Options, path string, acc *statsAccumulator) error {
	info, err := opts.Filesystem.Stat(path)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	size := info.Size()

	if opts.DryRun {
		acc.add(core.Stats{ReclaimedCount: 1, ReclaimedSize: size})
		return nil
	}

	if err := opts.Filesystem.Remove(path); err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	acc.add(core.Stats{ReclaimedCount: 1, ReclaimedSize: size})
	return nil
}
