package cache

import "sync"

// digestLedger memoizes content verification per distinct digest across a
// whole rebuild run. A sync.Once per key guarantees the check function
// runs exactly once even when many buckets race to verify the same
// digest concurrently; later callers for an already-verified digest get
// the cached result without re-streaming the blob.
//
// golang.org/x/sync/singleflight was considered but rejected: it only
// dedupes calls that overlap in time, evicting a key once its in-flight
// call finishes. A later, non-overlapping call for the same digest would
// re-execute and re-stream the blob, which breaks the once-per-run
// guarantee this engine needs.
type digestLedger struct {
	mu      sync.Mutex
	results map[string]*ledgerEntry
}

type ledgerEntry struct {
	once sync.Once
	size int64
	err  error
}

func newDigestLedger() *digestLedger {
	return &digestLedger{results: make(map[string]*ledgerEntry)}
}

// verifyOnce runs check exactly once for key, returning the cached result
// on every subsequent call. Reports whether this call performed the check
// (true) or reused a prior result (false).
func (l *digestLedger) verifyOnce(key string, check func() (int64, error)) (size int64, err error, first bool) {
	l.mu.Lock()
	e, ok := l.results[key]
	if !ok {
		e = &ledgerEntry{}
		l.results[key] = e
	}
	l.mu.Unlock()

	ran := false
	e.once.Do(func() {
		e.size, e.err = check()
		ran = true
	})
	return e.size, e.err, ran
}
