package cache

import (
	"crypto/sha512"
	"encoding/base64"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/infinite-skx/cacache/core"
)

// newTestRoot returns a fresh, empty cache root for a single test.
func newTestRoot(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// writeContent writes data to its deterministic content-store path under
// root, keyed by its SHA-512 digest, and returns that digest as an
// Integrity string.
func writeContent(t *testing.T, root string, data []byte) core.Integrity {
	t.Helper()
	sum := sha512.Sum512(data)
	integrity := core.NewIntegrity("sha512", base64.StdEncoding.EncodeToString(sum[:]))

	path, err := contentShardPath(root, integrity)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return integrity
}

// seedEntry appends a record for key directly into its bucket file,
// bypassing any higher-level insert API (there is none in this engine's
// scope; bucket writes are the engine's own contract with its collaborator).
func seedEntry(t *testing.T, root, key string, integrity core.Integrity, metadata any, size int64, when time.Time) {
	t.Helper()
	e := core.Entry{
		Key:       key,
		Integrity: integrity,
		Time:      when.UnixMilli(),
		Metadata:  metadata,
		Size:      size,
	}
	record, err := formatRecord(e)
	require.NoError(t, err)

	path := bucketPath(root, key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(record)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// seedEntryAtBucket is seedEntry but writes to an explicit bucket path,
// used to simulate a hash collision between two distinct keys without
// needing to override hashKey itself.
func seedEntryAtBucket(t *testing.T, path, key string, integrity core.Integrity, metadata any, size int64, when time.Time) {
	t.Helper()
	e := core.Entry{
		Key:       key,
		Integrity: integrity,
		Time:      when.UnixMilli(),
		Metadata:  metadata,
		Size:      size,
	}
	record, err := formatRecord(e)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(record)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// appendRaw appends arbitrary bytes to key's bucket file, for simulating
// torn or corrupted records.
func appendRaw(t *testing.T, root, key string, raw []byte) {
	t.Helper()
	path := bucketPath(root, key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write(raw)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// fsFault wraps osFilesystem and injects an error the first time one of
// its hooked methods is called against a matching path, for exercising
// the engine's unexpected-I/O-error propagation paths.
type fsFault struct {
	osFilesystem
	statErrPath   string
	statErr       error
	createErrPath string
	createErr     error
}

func (f *fsFault) Stat(path string) (fs.FileInfo, error) {
	if f.statErr != nil && path == f.statErrPath {
		return nil, f.statErr
	}
	return f.osFilesystem.Stat(path)
}

func (f *fsFault) Create(path string) (io.WriteCloser, error) {
	if f.createErr != nil && strings.Contains(path, f.createErrPath) {
		return nil, f.createErr
	}
	return f.osFilesystem.Create(path)
}

// erroringChecker always fails with a given error, for simulating
// unexpected integrity-checker failures distinct from a clean mismatch.
type erroringChecker struct {
	err error
}

func (c erroringChecker) CheckStream(io.Reader, core.Integrity) (int64, error) {
	return 0, c.err
}
