// Command cacache verifies and garbage-collects a content-addressed
// local cache.
package main

import (
	"os"

	"github.com/infinite-skx/cacache/cmd/cacache/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
