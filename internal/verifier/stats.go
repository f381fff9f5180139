// Package verifier formats verification statistics for display.
package verifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/infinite-skx/cacache/core"
)

// Stats wraps core.Stats to add a human-readable presentation, mirroring
// how long-running scan tools summarize their counters at completion.
type Stats struct {
	core.Stats
}

// String renders the statistics as a multi-line human-readable summary.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "verified:  %d blobs\n", s.VerifiedContent)
	fmt.Fprintf(&b, "kept:      %d entries (%s)\n", s.TotalEntries, humanize.IBytes(uint64max(s.KeptSize)))
	fmt.Fprintf(&b, "reclaimed: %d blobs (%s)\n", s.ReclaimedCount, humanize.IBytes(uint64max(s.ReclaimedSize)))
	if s.BadContentCount > 0 {
		fmt.Fprintf(&b, "corrupt:   %d blobs\n", s.BadContentCount)
	}
	if s.MissingContent > 0 {
		fmt.Fprintf(&b, "missing:   %d entries\n", s.MissingContent)
	}
	if s.RejectedEntries > 0 {
		fmt.Fprintf(&b, "rejected:  %d entries\n", s.RejectedEntries)
	}
	fmt.Fprintf(&b, "elapsed:   %s\n", s.Elapsed().Round(time.Millisecond))
	return b.String()
}

func uint64max(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
