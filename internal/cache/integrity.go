package cache

import (
	"crypto/md5"  //nolint:gosec // legacy algorithm supported for compatibility, not security
	"crypto/sha1" //nolint:gosec // legacy algorithm supported for compatibility, not security
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/infinite-skx/cacache/core"
	"github.com/infinite-skx/cacache/internal/contracts"
)

// digestAlgorithm maps a core.Hash algorithm name onto a go-digest
// Algorithm, for the algorithms go-digest registers by default.
var digestAlgorithm = map[string]digest.Algorithm{
	"sha256": digest.SHA256,
	"sha384": digest.SHA384,
	"sha512": digest.SHA512,
}

// legacyHash covers algorithms go-digest does not register: sha1 and md5
// remain in circulation in older cache entries.
var legacyHash = map[string]func() hash.Hash{
	"sha1": sha1.New,
	"md5":  md5.New,
}

// integrityChecker streams content through the hash implied by an
// Integrity's strongest algorithm and compares against its digest bytes.
type integrityChecker struct{}

var _ contracts.IntegrityChecker = integrityChecker{}

// CheckStream reads r to completion, returning the byte count and an error
// if the content's hash does not match integrity. The caller is responsible
// for the io.Reader's lifetime; CheckStream does not close it.
func (integrityChecker) CheckStream(r io.Reader, integrity core.Integrity) (int64, error) {
	h, ok := integrity.Strongest()
	if !ok {
		return 0, fmt.Errorf("%w: no parseable hash in integrity", core.ErrIntegrityMismatch)
	}

	want, err := base64.StdEncoding.DecodeString(h.Digest)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed base64 digest: %v", core.ErrIntegrityMismatch, err)
	}

	if algo, ok := digestAlgorithm[h.Algorithm]; ok {
		return checkWithGoDigest(r, algo, want)
	}
	if newHash, ok := legacyHash[h.Algorithm]; ok {
		return checkWithHash(r, newHash(), want)
	}
	return 0, fmt.Errorf("%w: unsupported algorithm %q", core.ErrIntegrityMismatch, h.Algorithm)
}

func checkWithGoDigest(r io.Reader, algo digest.Algorithm, want []byte) (int64, error) {
	expected := digest.NewDigestFromEncoded(algo, hex.EncodeToString(want))
	verifier := expected.Verifier()
	n, err := io.Copy(verifier, r)
	if err != nil {
		return n, err
	}
	if !verifier.Verified() {
		return n, fmt.Errorf("%w", core.ErrIntegrityMismatch)
	}
	return n, nil
}

func checkWithHash(r io.Reader, h hash.Hash, want []byte) (int64, error) {
	n, err := io.Copy(h, r)
	if err != nil {
		return n, err
	}
	got := h.Sum(nil)
	if !bytesEqual(got, want) {
		return n, fmt.Errorf("%w", core.ErrIntegrityMismatch)
	}
	return n, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// contentShardPath derives the content-store path for an Integrity's
// strongest hash: content-v2/<algo>/<shard>/<shard>/<tail>, where the
// base64 digest is decoded to raw bytes and re-encoded as hex so the
// path is filesystem-safe and matches the inverse derivation used by
// GarbageCollectContent.
func contentShardPath(root string, integrity core.Integrity) (string, error) {
	h, ok := integrity.Strongest()
	if !ok {
		return "", fmt.Errorf("%w: no parseable hash in integrity", core.ErrIntegrityMismatch)
	}
	raw, err := base64.StdEncoding.DecodeString(h.Digest)
	if err != nil {
		return "", fmt.Errorf("%w: malformed base64 digest: %v", core.ErrIntegrityMismatch, err)
	}
	tail := hex.EncodeToString(raw)
	return joinContentPath(root, h.Algorithm, tail), nil
}
