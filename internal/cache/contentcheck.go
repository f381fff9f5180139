package cache

import (
	"errors"
	"io"
	"io/fs"

	"github.com/infinite-skx/cacache/core"
	"github.com/infinite-skx/cacache/internal/progress"
)

// verifyEntryContent resolves e's content path and runs the per-digest
// memoized integrity check (see digestLedger), translating the result
// into a contentCheck. Blob-level accounting (verifiedContent, keptSize,
// badContentCount, reclaimedCount, reclaimedSize) happens inside the
// ledger's once-guarded closure, so it is applied exactly once per
// distinct digest regardless of how many entries, across how many
// buckets, reference it.
func verifyEntryContent(opts Options, root string, e core.Entry, acc *statsAccumulator, ledger *digestLedger) (contentCheck, error) {
	path, perr := contentShardPath(root, e.Integrity)
	if perr != nil {
		return contentCheck{status: contentMissing, path: path}, nil
	}

	h, _ := e.Integrity.Strongest()
	key := h.String()

	_, checkErr, _ := ledger.verifyOnce(key, func() (int64, error) {
		return performContentCheck(opts, path, e, acc)
	})

	switch {
	case checkErr == nil:
		return contentCheck{status: contentOK, path: path}, nil
	case errors.Is(checkErr, core.ErrContentMissing):
		return contentCheck{status: contentMissing, path: path}, nil
	case errors.Is(checkErr, core.ErrIntegrityMismatch):
		return contentCheck{status: contentBad, path: path}, nil
	default:
		return contentCheck{}, checkErr
	}
}

// performContentCheck stats, and if present streams, the blob at path.
// It returns core.ErrContentMissing or core.ErrIntegrityMismatch for the
// recoverable categories 2 and 3 of the error taxonomy; any other error
// is unexpected and fatal (category 5).
func performContentCheck(opts Options, path string, e core.Entry, acc *statsAccumulator) (int64, error) {
	info, err := opts.Filesystem.Stat(path)
	if err != nil {
		if isNotExist(err) {
			return 0, core.ErrContentMissing
		}
		return 0, err
	}
	actualSize := info.Size()

	if e.Size != 0 && e.Size != actualSize {
		return 0, rejectBadContent(opts, path, actualSize, acc)
	}

	rc, err := opts.Filesystem.Open(path)
	if err != nil {
		if isNotExist(err) {
			return 0, core.ErrContentMissing
		}
		return 0, err
	}
	var stream io.Reader = rc
	if opts.OnProgress != nil {
		stream = progress.NewReader(rc, actualSize, opts.OnProgress)
	}
	_, checkErr := opts.IntegrityChecker.CheckStream(stream, e.Integrity)
	closeErr := rc.Close()
	if checkErr != nil {
		if errors.Is(checkErr, core.ErrIntegrityMismatch) {
			return 0, rejectBadContent(opts, path, actualSize, acc)
		}
		return 0, checkErr
	}
	if closeErr != nil {
		return 0, closeErr
	}

	acc.add(core.Stats{VerifiedContent: 1, KeptSize: actualSize})
	return actualSize, nil
}

// rejectBadContent deletes the blob at path (unless DryRun) and accounts
// the deletion, returning core.ErrIntegrityMismatch.
func rejectBadContent(opts Options, path string, size int64, acc *statsAccumulator) error {
	if !opts.DryRun {
		if rmErr := opts.Filesystem.Remove(path); rmErr != nil && !isNotExist(rmErr) {
			return rmErr
		}
	}
	acc.add(core.Stats{BadContentCount: 1, ReclaimedCount: 1, ReclaimedSize: size})
	return core.ErrIntegrityMismatch
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// readAllAndClose reads r to completion and closes it, returning a
// combined error if either step failed.
func readAllAndClose(r io.ReadCloser) ([]byte, error) {
	data, readErr := io.ReadAll(r)
	closeErr := r.Close()
	if readErr != nil {
		return nil, readErr
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return data, nil
}
