package cache

import (
	"log/slog"
	"time"

	"github.com/infinite-skx/cacache/core"
	"github.com/infinite-skx/cacache/internal/contracts"
)

const defaultConcurrency = 20

// Options configures a Verify run.
type Options struct {
	// Filter is called once per parsed bucket entry. A false return
	// excludes the entry from the rebuilt index. Nil admits everything.
	Filter func(core.Entry) bool

	// Concurrency bounds parallel integrity checks and content-GC fan-out.
	// Zero uses the default of 20.
	Concurrency int

	// DryRun reports what would be reclaimed and rejected without
	// changing cache data: buckets are not rewritten, blobs and tmp/
	// entries are not deleted, and the last-verified marker is not
	// written, but Stats reflect what a real run would have done. The
	// cache directories are still created if absent, and directories
	// that are already empty are still pruned.
	DryRun bool

	// Logger is the structured logger for the run. A nil Logger is
	// replaced with a discarding logger. The engine's phases do not write
	// records to it; per-entry rejections are reported through OnReject.
	Logger *slog.Logger

	// OnReject, if set, is called once per rejected entry.
	OnReject func(bucketPath string, reason core.RejectReason, key string)

	// OnPhase, if set, is called after each phase completes with the
	// phase name and its elapsed duration.
	OnPhase func(phase string, elapsed time.Duration)

	// OnProgress, if set, is called while streaming each blob during
	// content verification, reporting cumulative bytes read against the
	// blob's expected size.
	OnProgress func(bytesRead, totalBytes int64)

	// Filesystem overrides the filesystem capability. Nil uses the OS
	// filesystem.
	Filesystem contracts.Filesystem

	// IntegrityChecker overrides the integrity-check capability. Nil uses
	// the go-digest-backed implementation.
	IntegrityChecker contracts.IntegrityChecker

	// Clock overrides the wall clock. Nil uses the real clock.
	Clock contracts.Clock
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Filesystem == nil {
		o.Filesystem = osFilesystem{}
	}
	if o.IntegrityChecker == nil {
		o.IntegrityChecker = integrityChecker{}
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	return o
}

func (o Options) logReject(bucketPath string, reason core.RejectReason, key string) {
	if o.OnReject != nil {
		o.OnReject(bucketPath, reason, key)
	}
}

func (o Options) logPhase(phase string, elapsed time.Duration) {
	if o.OnPhase != nil {
		o.OnPhase(phase, elapsed)
	}
}
