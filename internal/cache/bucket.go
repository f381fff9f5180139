package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/infinite-skx/cacache/core"
)

// hashEntry returns the checksum prefixed to a bucket record, used to
// detect torn or corrupted lines on read.
func hashEntry(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// formatRecord renders an entry as a bucket record: a leading newline,
// the entry-hash, a tab, and the JSON payload.
func formatRecord(e core.Entry) (string, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return "\n" + hashEntry(string(payload)) + "\t" + string(payload), nil
}

// parseBucket splits raw bucket bytes into the entries that parse and
// pass the hash check. Torn or corrupt lines are silently dropped, as are
// blank lines; neither counts toward any rejection statistic.
func parseBucket(raw []byte) []core.Entry {
	lines := strings.Split(string(raw), "\n")
	entries := make([]core.Entry, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		claimedHash, payload, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		if hashEntry(payload) != claimedHash {
			continue
		}
		var e core.Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// dedupByKey keeps, for each key, only the entry with the greatest Time.
// Returns the survivors (order undefined) and the count of entries
// dropped as shadowed.
func dedupByKey(entries []core.Entry) (survivors []core.Entry, shadowed int) {
	best := make(map[string]core.Entry, len(entries))
	for _, e := range entries {
		cur, ok := best[e.Key]
		if !ok || e.Time > cur.Time {
			if ok {
				shadowed++
			}
			best[e.Key] = e
			continue
		}
		shadowed++
	}
	survivors = make([]core.Entry, 0, len(best))
	for _, e := range best {
		survivors = append(survivors, e)
	}
	return survivors, shadowed
}
