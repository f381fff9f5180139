// Package cacache provides verification and garbage collection for a
// content-addressed local cache: a content store keyed by integrity digest,
// and an index mapping string keys to digests plus user metadata.
//
// # Basic usage
//
// Run a full verification and GC pass over a cache directory:
//
//	stats, err := cacache.Verify(ctx, "/var/cache/myapp", cacache.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(stats)
//
// Filter which entries survive the rebuilt index:
//
//	stats, err := cacache.Verify(ctx, root, cacache.Options{
//	    Filter: func(e core.Entry) bool { return len(e.Key) > 10 },
//	})
//
// Read back the last verification time without running a new pass:
//
//	when, err := cacache.LastRun(root, cacache.Options{})
package cacache
