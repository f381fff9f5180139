package core

import (
	"fmt"
	"strings"
)

// algoPriority ranks algorithms from weakest to strongest. Higher wins.
// Unrecognized algorithms sort below every known one.
var algoPriority = map[string]int{
	"md5":    1,
	"sha1":   2,
	"sha256": 3,
	"sha384": 4,
	"sha512": 5,
}

// Hash is a single parsed `<algorithm>:<base64>[?<opts>]` component of an
// Integrity string.
type Hash struct {
	Algorithm string
	Digest    string // base64-encoded
	Options   string // verbatim text after '?', empty if absent
}

// String reassembles the hash into its canonical textual form.
func (h Hash) String() string {
	s := h.Algorithm + ":" + h.Digest
	if h.Options != "" {
		s += "?" + h.Options
	}
	return s
}

// priority returns this hash's algorithm rank; unknown algorithms rank 0.
func (h Hash) priority() int {
	return algoPriority[strings.ToLower(h.Algorithm)]
}

// Integrity is a self-describing integrity string: one or more
// space-separated hashes, each of the form `<algorithm>:<base64>[?<opts>]`.
// Multiple hashes describe the same blob under different algorithms; the
// strongest (see Strongest) is canonical for content-store path derivation.
type Integrity string

// Hashes parses the Integrity string into its component Hashes, skipping
// any component that does not parse. Order of the returned slice matches
// the order of components in the source string.
func (i Integrity) Hashes() []Hash {
	fields := strings.Fields(string(i))
	hashes := make([]Hash, 0, len(fields))
	for _, f := range fields {
		h, ok := parseHash(f)
		if ok {
			hashes = append(hashes, h)
		}
	}
	return hashes
}

// parseHash parses a single `<algorithm>:<base64>[?<opts>]` component.
func parseHash(s string) (Hash, bool) {
	algo, rest, ok := strings.Cut(s, ":")
	if !ok || algo == "" || rest == "" {
		return Hash{}, false
	}
	digest, opts, _ := strings.Cut(rest, "?")
	if digest == "" {
		return Hash{}, false
	}
	return Hash{Algorithm: strings.ToLower(algo), Digest: digest, Options: opts}, true
}

// Strongest returns the component Hash with the highest-priority algorithm.
// Reports false if the Integrity string contains no parseable hash.
func (i Integrity) Strongest() (Hash, bool) {
	hashes := i.Hashes()
	if len(hashes) == 0 {
		return Hash{}, false
	}
	best := hashes[0]
	for _, h := range hashes[1:] {
		if h.priority() > best.priority() {
			best = h
		}
	}
	return best, true
}

// Empty reports whether the Integrity string has no parseable hash.
func (i Integrity) Empty() bool {
	return len(i.Hashes()) == 0
}

// NewIntegrity builds an Integrity string from a single algorithm and
// base64-encoded digest.
func NewIntegrity(algorithm, digestB64 string) Integrity {
	return Integrity(fmt.Sprintf("%s:%s", algorithm, digestB64))
}
