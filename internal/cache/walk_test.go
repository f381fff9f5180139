package cache

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkFiles_ListsNestedFilesOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.txt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "mid.txt"), []byte("2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "b", "deep.txt"), []byte("3"), 0o644))

	files, err := walkFiles(osFilesystem{}, dir)
	require.NoError(t, err)
	sort.Strings(files)

	assert.Equal(t, []string{
		filepath.Join(dir, "a", "b", "deep.txt"),
		filepath.Join(dir, "a", "mid.txt"),
		filepath.Join(dir, "top.txt"),
	}, files)
}

func TestPruneEmptyDirs_RemovesEmptyLeavesOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty", "nested"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "kept"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept", "file.txt"), []byte("x"), 0o644))

	require.NoError(t, pruneEmptyDirs(osFilesystem{}, dir))

	_, err := os.Stat(filepath.Join(dir, "empty"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dir, "kept"))
	assert.NoError(t, err)

	_, err = os.Stat(dir)
	assert.NoError(t, err, "dir itself must never be removed")
}

func TestGarbageCollectTmp_RemovesChildrenCreatesIfAbsent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	tmp := tmpRoot(root)
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "scratch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "scratch", "f"), []byte("x"), 0o644))

	require.NoError(t, garbageCollectTmp(Options{}.withDefaults(), root))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGarbageCollectTmp_DryRunLeavesContentsUntouched(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	tmp := tmpRoot(root)
	require.NoError(t, os.MkdirAll(tmp, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "f"), []byte("x"), 0o644))

	opts := Options{DryRun: true}.withDefaults()
	require.NoError(t, garbageCollectTmp(opts, root))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
