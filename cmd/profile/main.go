//go:build profiling
// +build profiling

package main

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"time"

	"github.com/felixge/fgprof"
	"github.com/grafana/pyroscope-go"

	"github.com/infinite-skx/cacache"
)

type profileKind string

const (
	profileCPU   profileKind = "cpu"
	profileFG    profileKind = "fgprof"
	profileTrace profileKind = "trace"
	profileNone  profileKind = "none"

	defaultCacheRoot = "tmp/profilecache"
)

func main() {
	var (
		cacheRoot   = flag.String("cache-root", defaultCacheRoot, "cache directory to verify")
		seed        = flag.Bool("seed", false, "populate the cache root with synthetic entries before running")
		seedEntries = flag.Int("seed-entries", 2000, "number of synthetic index entries to generate when seeding")
		seedBlobs   = flag.Int("seed-blobs", 500, "number of synthetic content blobs to generate when seeding")
		corruptFrac = flag.Float64("seed-corrupt-frac", 0.02, "fraction of seeded blobs to corrupt")
		orphanFrac  = flag.Float64("seed-orphan-frac", 0.05, "fraction of seeded blobs to leave unreferenced")
		clearCache  = flag.Bool("clear-cache", false, "remove the cache root before seeding")
		dryRun      = flag.Bool("dry-run", false, "run verification in dry-run mode")
		concurrency = flag.Int("concurrency", 20, "bound on parallel integrity checks and content GC")
		profile     = flag.String("profile", "cpu", "profile type: cpu, fgprof, trace, none")
		outDir      = flag.String("out", "profiles", "output directory for profiles")
		label       = flag.String("label", "", "label suffix for profile files")
		repeat      = flag.Int("repeat", 1, "number of verify iterations")
		logLevel    = flag.String("log-level", "", "log level: debug, info, warn, error")
		stats       = flag.Bool("print-stats", false, "print accounting statistics after each iteration")
		timeout     = flag.Duration("timeout", 15*time.Minute, "overall timeout")
		pyroAddr    = flag.String("pyroscope", "", "Pyroscope server URL (enables streaming, disables local profiles)")
	)
	flag.Parse()

	runID := time.Now().UTC().Format("20060102T150405Z")

	if *repeat < 1 {
		log.Fatalf("repeat must be >= 1")
	}

	labelParts := []string{"verify"}
	if *label != "" {
		labelParts = append(labelParts, sanitizeLabel(*label))
	}
	labelParts = append(labelParts, runID)
	labelValue := strings.Join(labelParts, "_")

	var pyroProfiler *pyroscope.Profiler
	if *pyroAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "cacache-profile",
			ServerAddress:   *pyroAddr,
			// Grafana Cloud requires BasicAuth (AuthToken is deprecated)
			// User: instance ID from Grafana Cloud, Password: API token
			BasicAuthUser:     os.Getenv("PYROSCOPE_BASIC_AUTH_USER"),
			BasicAuthPassword: os.Getenv("PYROSCOPE_BASIC_AUTH_PASSWORD"),
			// Use a short upload rate since profiling runs are brief
			UploadRate: 5 * time.Second,
			Logger:     pyroscope.StandardLogger,
			Tags: map[string]string{
				"git_sha": os.Getenv("GITHUB_SHA"),
				"git_ref": os.Getenv("GITHUB_REF_NAME"),
				"run_id":  runID,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("start pyroscope: %v", err)
		}
		pyroProfiler = profiler
		log.Printf("streaming profiles to %s", *pyroAddr)
	}

	if *pyroAddr == "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("create profile output dir: %v", err)
		}
	}

	profileKindValue := profileKind(strings.ToLower(*profile))
	if !isValidProfile(profileKindValue) {
		log.Fatalf("invalid profile %q (expected cpu, fgprof, trace, none)", *profile)
	}

	absRoot, err := filepath.Abs(*cacheRoot)
	if err != nil {
		log.Fatalf("resolve cache root: %v", err)
	}
	if *clearCache {
		if err := os.RemoveAll(absRoot); err != nil {
			log.Fatalf("clear cache root: %v", err)
		}
	}
	if *seed {
		if err := seedCache(absRoot, *seedEntries, *seedBlobs, *corruptFrac, *orphanFrac); err != nil {
			log.Fatalf("seed cache: %v", err)
		}
		log.Printf("seeded %s: %d entries, %d blobs", absRoot, *seedEntries, *seedBlobs)
	}

	var opts cacache.Options
	opts.Concurrency = *concurrency
	opts.DryRun = *dryRun
	if *logLevel != "" {
		level, err := parseLogLevel(*logLevel)
		if err != nil {
			log.Fatalf("parse log level: %v", err)
		}
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	// Only start local profiling when not streaming to Pyroscope.
	var stopProfile func() error
	if *pyroAddr == "" {
		stopProfile, err = startProfile(profileKindValue, *outDir, labelValue)
		if err != nil {
			log.Fatalf("start profile: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	for i := range *repeat {
		if *repeat > 1 {
			log.Printf("iteration %d/%d", i+1, *repeat)
		}
		start := time.Now()
		runStats, err := cacache.Verify(ctx, absRoot, opts)
		if err != nil {
			log.Fatalf("verify: %v", err)
		}
		log.Printf("verify complete: %s", time.Since(start))
		if *stats {
			log.Printf("verified=%d reclaimed=%d(%d bytes) corrupt=%d missing=%d rejected=%d",
				runStats.VerifiedContent, runStats.ReclaimedCount, runStats.ReclaimedSize,
				runStats.BadContentCount, runStats.MissingContent, runStats.RejectedEntries)
		}
	}

	if pyroProfiler != nil {
		if err := pyroProfiler.Stop(); err != nil {
			log.Fatalf("stop pyroscope: %v", err)
		}
		log.Printf("pyroscope profiling stopped")
	} else {
		if stopErr := stopProfile(); stopErr != nil {
			log.Fatalf("stop profile: %v", stopErr)
		}
		if err := writeHeapProfile(*outDir, labelValue); err != nil {
			log.Fatalf("write heap profile: %v", err)
		}
		if err := writeAllocsProfile(*outDir, labelValue); err != nil {
			log.Fatalf("write allocs profile: %v", err)
		}
	}
}

func isValidProfile(kind profileKind) bool {
	switch kind {
	case profileCPU, profileFG, profileTrace, profileNone:
		return true
	default:
		return false
	}
}

func startProfile(kind profileKind, outDir, label string) (func() error, error) {
	switch kind {
	case profileCPU:
		path := filepath.Join(outDir, "cpu_"+label+".pprof")
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			pprof.StopCPUProfile()
			return f.Close()
		}, nil
	case profileFG:
		path := filepath.Join(outDir, "fgprof_"+label+".pprof")
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		stop := fgprof.Start(f, fgprof.FormatPprof)
		return func() error {
			stopErr := stop()
			closeErr := f.Close()
			return errors.Join(stopErr, closeErr)
		}, nil
	case profileTrace:
		path := filepath.Join(outDir, "trace_"+label+".out")
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			trace.Stop()
			return f.Close()
		}, nil
	case profileNone:
		return func() error { return nil }, nil
	default:
		return nil, fmt.Errorf("unknown profile type: %s", kind)
	}
}

func writeHeapProfile(outDir, label string) error {
	path := filepath.Join(outDir, "heap_"+label+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

func writeAllocsProfile(outDir, label string) error {
	path := filepath.Join(outDir, "allocs_"+label+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pprof.Lookup("allocs").WriteTo(f, 0)
}

func sanitizeLabel(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, value)
}

func parseLogLevel(value string) (slog.Leveler, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("unknown level %q", value)
	}
}

// seedCache writes a synthetic index-v5/content-v2 tree directly to disk so
// profiling runs can exercise the verify pipeline without a live producer.
// A fraction of blobs are corrupted (wrong bytes) or left unreferenced to
// exercise the reclaim paths.
func seedCache(root string, entryCount, blobCount int, corruptFrac, orphanFrac float64) error {
	rng := rand.New(rand.NewSource(1))

	contentRoot := filepath.Join(root, "content-v2", "sha256")
	indexRoot := filepath.Join(root, "index-v5")
	if err := os.MkdirAll(contentRoot, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(indexRoot, 0o755); err != nil {
		return err
	}

	type seededBlob struct {
		digestHex string
		size      int64
		orphan    bool
	}

	blobs := make([]seededBlob, 0, blobCount)
	for i := 0; i < blobCount; i++ {
		payload := make([]byte, 64+rng.Intn(4096))
		rng.Read(payload)
		sum := sha256.Sum256(payload)
		hexSum := fmt.Sprintf("%x", sum)

		data := payload
		if rng.Float64() < corruptFrac {
			data = append([]byte{}, payload...)
			data[0] ^= 0xFF
		}

		shardA, shardB := hexSum[0:2], hexSum[2:4]
		dir := filepath.Join(contentRoot, shardA, shardB)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, hexSum[4:]), data, 0o644); err != nil {
			return err
		}

		blobs = append(blobs, seededBlob{digestHex: hexSum, size: int64(len(payload)), orphan: rng.Float64() < orphanFrac})
	}

	referencable := make([]seededBlob, 0, len(blobs))
	for _, b := range blobs {
		if !b.orphan {
			referencable = append(referencable, b)
		}
	}
	if len(referencable) == 0 {
		referencable = blobs
	}

	buckets := make(map[string][]string)
	for i := 0; i < entryCount; i++ {
		key := fmt.Sprintf("profile-key-%06d", i)
		b := referencable[rng.Intn(len(referencable))]

		raw, err := hexDecode(b.digestHex)
		if err != nil {
			return err
		}
		integrity := "sha256:" + base64.StdEncoding.EncodeToString(raw)

		record := fmt.Sprintf(`{"key":%q,"integrity":%q,"time":%d,"size":%d}`,
			key, integrity, time.Now().UnixMilli(), b.size)
		sum := sha256.Sum256([]byte(record))
		line := fmt.Sprintf("%x\t%s", sum, record)

		keySum := sha256.Sum256([]byte(key))
		keyHex := fmt.Sprintf("%x", keySum)
		bucketPath := filepath.Join(indexRoot, keyHex[0:2], keyHex[2:4], keyHex[4:])
		buckets[bucketPath] = append(buckets[bucketPath], line)
	}

	for path, lines := range buckets {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		content := "\n" + strings.Join(lines, "\n")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}

	return nil
}

func hexDecode(s string) ([]byte, error) {
	out := make([]byte, len(s)/2)
	for i := range out {
		var b byte
		_, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &b)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
