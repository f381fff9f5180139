package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/infinite-skx/cacache"
)

var lastVerifiedCmd = &cobra.Command{
	Use:   "last-verified <cache-root>",
	Short: "Print the time of the most recent successful verify",
	Args:  cobra.ExactArgs(1),
	RunE:  runLastVerified,
}

func init() {
	rootCmd.AddCommand(lastVerifiedCmd)
}

func runLastVerified(_ *cobra.Command, args []string) error {
	when, err := cacache.LastRun(args[0], verifyOptions())
	if err != nil {
		if errors.Is(err, cacache.ErrNoLastVerified) {
			fmt.Println("never verified")
			return nil
		}
		return err
	}
	fmt.Println(when.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}
