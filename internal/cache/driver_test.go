package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinite-skx/cacache/core"
)

var testContent = []byte("foobarbaz")

func TestVerify_CorruptedBucketSuffix(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	seedEntry(t, root, "my-test-key", integrity, map[string]string{"foo": "bar"}, int64(len(testContent)), time.Now())
	appendRaw(t, root, "my-test-key", []byte("\n234uhhh"))

	stats, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.MissingContent)
	assert.Equal(t, 1, stats.TotalEntries)

	entries, err := Entries(root, Options{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "my-test-key", entries[0].Key)
	assert.Equal(t, integrity, entries[0].Integrity)
}

func TestVerify_ShadowedEntry(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	seedEntry(t, root, "my-test-key", integrity, "first", int64(len(testContent)), time.Now())
	seedEntry(t, root, "my-test-key", integrity, "meh", int64(len(testContent)), time.Now().Add(time.Second))

	stats, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)

	entries, err := Entries(root, Options{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "meh", entries[0].Metadata)
}

func TestVerify_FilterRejection(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	now := time.Now()
	seedEntry(t, root, "key-12-chars", integrity, nil, int64(len(testContent)), now)
	seedEntry(t, root, "key-fifteen-001", integrity, nil, int64(len(testContent)), now)
	seedEntry(t, root, "key-fifteen-002", integrity, nil, int64(len(testContent)), now)

	stats, err := Verify(context.Background(), root, Options{
		Filter: func(e core.Entry) bool { return len(e.Key) == 15 },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.RejectedEntries)
	assert.Equal(t, 1, stats.VerifiedContent)
}

func TestVerify_TruncatedBlob(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	seedEntry(t, root, "my-test-key", integrity, nil, int64(len(testContent)), time.Now())

	path, err := contentShardPath(root, integrity)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, testContent[:len(testContent)-1], 0o644))

	stats, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, core.Stats{
		VerifiedContent: 0,
		ReclaimedCount:  1,
		ReclaimedSize:   int64(len(testContent) - 1),
		BadContentCount: 1,
		KeptSize:        0,
		MissingContent:  1,
		RejectedEntries: 1,
		TotalEntries:    0,
		StartTime:       stats.StartTime,
		EndTime:         stats.EndTime,
		RunTime:         stats.RunTime,
	}, stats)
	assert.False(t, fileExists(path))
}

func TestVerify_OrphanBlob(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	path, err := contentShardPath(root, integrity)
	require.NoError(t, err)

	stats, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ReclaimedCount)
	assert.Equal(t, int64(len(testContent)), stats.ReclaimedSize)
	assert.Equal(t, 0, stats.VerifiedContent)
	assert.Equal(t, 0, stats.BadContentCount)
	assert.Equal(t, 0, stats.MissingContent)
	assert.Equal(t, 0, stats.RejectedEntries)
	assert.Equal(t, 0, stats.TotalEntries)
	assert.False(t, fileExists(path))
}

func TestVerify_TmpCleanupWithSiblingPreservation(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	seedEntry(t, root, "my-test-key", integrity, nil, int64(len(testContent)), time.Now())

	tmpX := filepath.Join(root, "tmp", "x")
	require.NoError(t, os.MkdirAll(filepath.Dir(tmpX), 0o755))
	require.NoError(t, os.WriteFile(tmpX, []byte("scratch"), 0o644))

	sibling := filepath.Join(root, "y")
	require.NoError(t, os.WriteFile(sibling, []byte("keep me"), 0o644))

	_, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.False(t, fileExists(tmpX))
	assert.True(t, fileExists(sibling))
}

func TestVerify_LastVerifiedMarker(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)

	_, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)

	when, err := LastRun(root, Options{})
	require.NoError(t, err)

	raw, err := os.ReadFile(lastVerifiedPath(root))
	require.NoError(t, err)
	ms, err := parseMillis(string(raw))
	require.NoError(t, err)
	assert.Equal(t, ms, when.UnixMilli())
}

func TestVerify_HashCollisionBucket(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	now := time.Now()

	bucket := filepath.Join(root, "index-v5", "aa", "bb", "collision")
	seedEntryAtBucket(t, bucket, "key-one", integrity, nil, int64(len(testContent)), now)
	seedEntryAtBucket(t, bucket, "key-two", integrity, nil, int64(len(testContent)), now)

	stats, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.VerifiedContent)
}

func TestVerify_HashCollisionWithNullFilter(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	now := time.Now()

	bucket := filepath.Join(root, "index-v5", "aa", "bb", "collision")
	seedEntryAtBucket(t, bucket, "key-one", integrity, nil, int64(len(testContent)), now)
	seedEntryAtBucket(t, bucket, "key-two", integrity, nil, int64(len(testContent)), now)

	stats, err := Verify(context.Background(), root, Options{
		Filter: func(core.Entry) bool { return false },
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)
	assert.Equal(t, 2, stats.RejectedEntries)
	assert.Equal(t, 0, stats.VerifiedContent)
}

func TestVerify_RoundTrip_UntouchedCacheIsStable(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	seedEntry(t, root, "my-test-key", integrity, nil, int64(len(testContent)), time.Now())

	first, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)

	second, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, second.ReclaimedCount)
	assert.Equal(t, 0, second.BadContentCount)
	assert.Equal(t, 0, second.MissingContent)
	assert.Equal(t, first.TotalEntries, second.TotalEntries)
}

func TestVerify_RoundTrip_ManyKeysOneBlob(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	now := time.Now()
	const k = 7
	for i := 0; i < k; i++ {
		seedEntry(t, root, keyName(i), integrity, nil, int64(len(testContent)), now)
	}

	stats, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, k, stats.TotalEntries)
	assert.Equal(t, 1, stats.VerifiedContent)
}

func TestVerify_ErrorSurface_StatNotFound(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	path, err := contentShardPath(root, integrity)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))
	seedEntry(t, root, "my-test-key", integrity, nil, int64(len(testContent)), time.Now())

	stats, err := Verify(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MissingContent)
	assert.Equal(t, 1, stats.RejectedEntries)
	assert.Equal(t, 0, stats.TotalEntries)
}

func TestVerify_ErrorSurface_UnexpectedStatError(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	seedEntry(t, root, "my-test-key", integrity, nil, int64(len(testContent)), time.Now())
	path, err := contentShardPath(root, integrity)
	require.NoError(t, err)

	wantErr := errors.New("disk gremlin")
	fsys := &fsFault{statErrPath: path, statErr: wantErr}

	_, err = Verify(context.Background(), root, Options{Filesystem: fsys})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestVerify_ErrorSurface_UnknownIntegrityCheckerError(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	seedEntry(t, root, "my-test-key", integrity, nil, int64(len(testContent)), time.Now())

	wantErr := errors.New("checker exploded")

	_, err := Verify(context.Background(), root, Options{
		IntegrityChecker: erroringChecker{err: wantErr},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestVerify_ErrorSurface_BucketRewriteFailure(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	seedEntry(t, root, "my-test-key", integrity, nil, int64(len(testContent)), time.Now())

	wantErr := errors.New("create failed")
	fsys := &fsFault{createErrPath: ".tmp", createErr: wantErr}

	_, err := Verify(context.Background(), root, Options{Filesystem: fsys})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)

	_, statErr := LastRun(root, Options{})
	assert.ErrorIs(t, statErr, core.ErrNoLastVerified)
}

func TestVerify_DryRunDoesNotMutate(t *testing.T) {
	t.Parallel()
	root := newTestRoot(t)
	integrity := writeContent(t, root, testContent)
	orphan := writeContent(t, root, []byte("unreferenced-blob"))
	seedEntry(t, root, "my-test-key", integrity, nil, int64(len(testContent)), time.Now())

	orphanPath, err := contentShardPath(root, orphan)
	require.NoError(t, err)

	stats, err := Verify(context.Background(), root, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ReclaimedCount)
	assert.True(t, fileExists(orphanPath))

	_, err = LastRun(root, Options{})
	assert.ErrorIs(t, err, core.ErrNoLastVerified)
}

func keyName(i int) string {
	return "key-" + string(rune('a'+i))
}

func parseMillis(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
