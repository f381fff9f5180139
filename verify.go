package cacache

import (
	"context"
	"time"

	"github.com/infinite-skx/cacache/core"
	"github.com/infinite-skx/cacache/internal/cache"
)

// Options configures a Verify run. See internal/cache.Options for field
// documentation; it is aliased here so callers never import internal
// packages.
type Options = cache.Options

// Verify scans cacheRoot, rebuilds its index, reclaims orphaned and
// corrupt content, and returns accounting statistics. It runs, in order:
// MarkStart, FixPerms (no-op), GarbageCollectTmp, RebuildIndex,
// GarbageCollectContent, WriteLastVerified, MarkEnd.
//
// Fails with ErrCacheRootUnusable if cacheRoot cannot be created or
// accessed. Any other unexpected I/O error aborts the run without
// updating the last-verified marker.
func Verify(ctx context.Context, cacheRoot string, opts Options) (core.Stats, error) {
	return cache.Verify(ctx, cacheRoot, opts)
}

// LastRun returns the timestamp of the most recently completed Verify
// run against cacheRoot. Returns ErrNoLastVerified if Verify has never
// completed successfully there.
func LastRun(cacheRoot string, opts Options) (time.Time, error) {
	return cache.LastRun(cacheRoot, opts)
}

// Entries enumerates the entries currently retained in cacheRoot's index,
// without performing a full verification pass.
func Entries(cacheRoot string, opts Options) ([]core.Entry, error) {
	return cache.Entries(cacheRoot, opts)
}

// Size returns the total number of bytes held in cacheRoot's content
// store, independent of a full Verify run.
func Size(cacheRoot string, opts Options) (int64, error) {
	return cache.Size(cacheRoot, opts)
}
