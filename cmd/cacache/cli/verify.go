package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/infinite-skx/cacache"
	"github.com/infinite-skx/cacache/internal/verifier"
)

var (
	verifyJSON     bool
	verifyProgress bool
	verifyDryRun   bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <cache-root>",
	Short: "Rebuild the index and reclaim orphaned or corrupt content",
	Long: `Verify runs the full verification and garbage-collection pipeline
over a cache directory: it rebuilds the index from its bucket files,
re-checks every retained entry's content against its integrity digest,
reclaims content no longer referenced by any entry, and records the
time of this run.

Examples:
  cacache verify /var/cache/myapp
  cacache verify /var/cache/myapp --json
  cacache verify /var/cache/myapp --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print statistics as JSON")
	verifyCmd.Flags().BoolVar(&verifyProgress, "progress", false, "show a progress spinner during the scan")
	verifyCmd.Flags().BoolVar(&verifyDryRun, "dry-run", false, "report what would change without mutating the cache")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(_ *cobra.Command, args []string) error {
	root := args[0]

	opts := verifyOptions()
	opts.DryRun = verifyDryRun

	if verifyProgress {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("verifying"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetWriter(os.Stderr),
		)
		opts.OnPhase = func(phase string, _ time.Duration) {
			fmt.Fprintf(os.Stderr, "\n%s done\n", phase)
		}
		opts.OnProgress = func(bytesRead, _ int64) {
			_ = bar.Set64(bytesRead)
		}
		defer bar.Finish() //nolint:errcheck // best-effort terminal cleanup
	}

	ctx, cancel := signalContext()
	defer cancel()

	stats, err := cacache.Verify(ctx, root, opts)
	if err != nil {
		return err
	}

	if verifyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Print(verifier.Stats{Stats: stats}.String())
	return nil
}
