package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/infinite-skx/cacache/core"
)

// Verify runs the verification and garbage-collection pipeline over root
// in strict phase order: MarkStart, FixPerms (no-op), GarbageCollectTmp,
// RebuildIndex, GarbageCollectContent, WriteLastVerified, MarkEnd. Any
// unexpected error aborts the run without writing the last-verified
// marker.
func Verify(ctx context.Context, root string, opts Options) (core.Stats, error) {
	opts = opts.withDefaults()

	start := opts.Clock.Now()

	if err := ensureCacheRoot(opts, root); err != nil {
		return core.Stats{}, fmt.Errorf("%w: %v", core.ErrCacheRootUnusable, err)
	}

	// FixPerms: reserved hook, currently a no-op.

	if err := timedPhase(opts, "GarbageCollectTmp", func() error {
		return garbageCollectTmp(opts, root)
	}); err != nil {
		return core.Stats{}, err
	}

	var rebuildStats core.Stats
	var retained *retainedSet
	if err := timedPhase(opts, "RebuildIndex", func() error {
		var err error
		rebuildStats, retained, err = rebuildIndex(ctx, opts, root)
		return err
	}); err != nil {
		return core.Stats{}, err
	}

	var gcStats core.Stats
	if err := timedPhase(opts, "GarbageCollectContent", func() error {
		var err error
		gcStats, err = garbageCollectContent(ctx, opts, root, retained)
		return err
	}); err != nil {
		return core.Stats{}, err
	}

	if err := ctx.Err(); err != nil {
		return core.Stats{}, err
	}

	end := opts.Clock.Now()
	if err := timedPhase(opts, "WriteLastVerified", func() error {
		return writeLastVerified(opts, root, end)
	}); err != nil {
		return core.Stats{}, err
	}

	stats := sumStats(rebuildStats, gcStats)
	stats.StartTime = start.UnixMilli()
	stats.EndTime = end.UnixMilli()
	stats.RunTime = end.UnixMilli() - start.UnixMilli()

	return stats, nil
}

// LastRun reads the cache root's _lastverified marker. Returns
// core.ErrNoLastVerified if verify has never completed successfully
// against root.
func LastRun(root string, opts Options) (time.Time, error) {
	opts = opts.withDefaults()
	return lastRun(opts.Filesystem, root)
}

func ensureCacheRoot(opts Options, root string) error {
	if err := opts.Filesystem.MkdirAll(indexRoot(root)); err != nil {
		return err
	}
	if err := opts.Filesystem.MkdirAll(contentRoot(root)); err != nil {
		return err
	}
	return opts.Filesystem.MkdirAll(tmpRoot(root))
}

func timedPhase(opts Options, name string, fn func() error) error {
	startedAt := opts.Clock.Now()
	err := fn()
	opts.logPhase(name, opts.Clock.Now().Sub(startedAt))
	return err
}

func sumStats(parts ...core.Stats) core.Stats {
	var s core.Stats
	for _, p := range parts {
		s.VerifiedContent += p.VerifiedContent
		s.ReclaimedCount += p.ReclaimedCount
		s.ReclaimedSize += p.ReclaimedSize
		s.BadContentCount += p.BadContentCount
		s.KeptSize += p.KeptSize
		s.MissingContent += p.MissingContent
		s.RejectedEntries += p.RejectedEntries
		s.TotalEntries += p.TotalEntries
	}
	return s
}
