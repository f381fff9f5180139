package cache

import (
	"sync"

	"github.com/infinite-skx/cacache/core"
)

// statsAccumulator collects Stats counters from concurrent bucket and
// content-GC workers under a single mutex. Contention is negligible next
// to the I/O each worker performs.
type statsAccumulator struct {
	mu sync.Mutex
	s  core.Stats
}

func (a *statsAccumulator) add(delta core.Stats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.s.VerifiedContent += delta.VerifiedContent
	a.s.ReclaimedCount += delta.ReclaimedCount
	a.s.ReclaimedSize += delta.ReclaimedSize
	a.s.BadContentCount += delta.BadContentCount
	a.s.KeptSize += delta.KeptSize
	a.s.MissingContent += delta.MissingContent
	a.s.RejectedEntries += delta.RejectedEntries
	a.s.TotalEntries += delta.TotalEntries
}

func (a *statsAccumulator) snapshot() core.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.s
}

// retainedSet tracks content-store paths still referenced by the rebuilt
// index, guarded for concurrent writes from bucket workers.
type retainedSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func newRetainedSet() *retainedSet {
	return &retainedSet{paths: make(map[string]struct{})}
}

func (r *retainedSet) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[path] = struct{}{}
}

func (r *retainedSet) has(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.paths[path]
	return ok
}
