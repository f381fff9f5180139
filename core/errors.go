package core

import "errors"

// Sentinel errors for common failure conditions. Only unexpected,
// unrecoverable conditions are surfaced this way; per-entry rejection
// reasons (torn records, filter exclusion, missing or bad content) are
// folded into Stats rather than returned as errors.
var (
	// ErrCacheRootUnusable indicates the cache root could not be created
	// or accessed.
	ErrCacheRootUnusable = errors.New("cacache: cache root unusable")

	// ErrNoLastVerified indicates no _lastverified marker exists yet.
	ErrNoLastVerified = errors.New("cacache: no last-verified marker")

	// ErrIntegrityMismatch indicates a blob's content did not match its
	// declared integrity digest.
	ErrIntegrityMismatch = errors.New("cacache: integrity mismatch")

	// ErrContentMissing indicates a referenced blob does not exist in the
	// content store.
	ErrContentMissing = errors.New("cacache: content missing")
)
