package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/infinite-skx/cacache/core"
)

// contentStatus is the outcome of verifying a single candidate entry's
// content against its declared integrity.
type contentStatus int

const (
	contentOK contentStatus = iota
	contentMissing
	contentBad
)

type contentCheck struct {
	status contentStatus
	path   string
}

// rebuildIndex scans every bucket under the index tree, retaining only
// entries that parse, pass the caller's filter, are the latest record for
// their key within the bucket, and reference content that verifies. It
// returns the accumulated Stats delta and the set of content paths the
// rebuilt index still references, for use by GarbageCollectContent.
func rebuildIndex(ctx context.Context, opts Options, root string) (core.Stats, *retainedSet, error) {
	buckets, err := walkFiles(opts.Filesystem, indexRoot(root))
	if err != nil {
		return core.Stats{}, nil, fmt.Errorf("enumerate buckets: %w", err)
	}

	acc := &statsAccumulator{}
	retained := newRetainedSet()
	ledger := newDigestLedger()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, bucketFile := range buckets {
		bucketFile := bucketFile
		g.Go(func() error {
			return processBucket(ctx, opts, root, bucketFile, acc, retained, ledger)
		})
	}

	if err := g.Wait(); err != nil {
		return core.Stats{}, nil, err
	}

	if err := pruneEmptyDirs(opts.Filesystem, indexRoot(root)); err != nil {
		return core.Stats{}, nil, fmt.Errorf("prune index directories: %w", err)
	}

	return acc.snapshot(), retained, nil
}

func processBucket(ctx context.Context, opts Options, root, bucketFile string, acc *statsAccumulator, retained *retainedSet, ledger *digestLedger) error {
	f, err := opts.Filesystem.Open(bucketFile)
	if err != nil {
		return fmt.Errorf("open bucket %s: %w", bucketFile, err)
	}
	raw, err := readAllAndClose(f)
	if err != nil {
		return fmt.Errorf("read bucket %s: %w", bucketFile, err)
	}

	candidates := parseBucket(raw)

	var delta core.Stats
	if opts.Filter != nil {
		kept := candidates[:0:0]
		for _, e := range candidates {
			if opts.Filter(e) {
				kept = append(kept, e)
				continue
			}
			delta.RejectedEntries++
			opts.logReject(bucketFile, core.RejectFilterExclusion, e.Key)
		}
		candidates = kept
	}

	survivors, shadowed := dedupByKey(candidates)
	delta.RejectedEntries += shadowed
	if shadowed > 0 && opts.OnReject != nil {
		perKey := make(map[string]int, len(candidates))
		for _, e := range candidates {
			perKey[e.Key]++
		}
		for key, n := range perKey {
			for ; n > 1; n-- {
				opts.logReject(bucketFile, core.RejectShadowed, key)
			}
		}
	}

	var keptEntries []core.Entry
	for _, e := range survivors {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		check, err := verifyEntryContent(opts, root, e, acc, ledger)
		if err != nil {
			return fmt.Errorf("verify content for key %q: %w", e.Key, err)
		}

		switch check.status {
		case contentMissing:
			delta.RejectedEntries++
			delta.MissingContent++
			opts.logReject(bucketFile, core.RejectContentMissing, e.Key)
		case contentBad:
			delta.RejectedEntries++
			delta.MissingContent++
			opts.logReject(bucketFile, core.RejectIntegrityMismatch, e.Key)
			if opts.DryRun {
				// The bad blob stays on disk and is already counted as
				// reclaimed; keep GarbageCollectContent from counting it again.
				retained.add(check.path)
			}
		case contentOK:
			keptEntries = append(keptEntries, e)
			retained.add(check.path)
		}
	}

	delta.TotalEntries += len(keptEntries)
	acc.add(delta)

	return rewriteBucket(opts, bucketFile, keptEntries)
}
