package cacache

import "github.com/infinite-skx/cacache/core"

// Sentinel errors re-exported from core for caller convenience.
var (
	ErrCacheRootUnusable = core.ErrCacheRootUnusable
	ErrNoLastVerified    = core.ErrNoLastVerified
	ErrIntegrityMismatch = core.ErrIntegrityMismatch
	ErrContentMissing    = core.ErrContentMissing
)
