// Package cli implements the cacache command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/infinite-skx/cacache"
	"github.com/infinite-skx/cacache/cmd/cacache/cli/config"
)

// Build information set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cfgFile is the path to the config file (set via --config flag).
var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cacache",
	Short: "Verify and garbage-collect a content-addressed cache",
	Long: `cacache scans a content-addressed local cache, rebuilds its index,
reclaims orphaned and corrupt content, and reports accounting statistics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().Int("concurrency", 20, "bound on parallel integrity checks and content GC")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose debug logging")

	//nolint:errcheck // flags are defined above, so Lookup will never return nil
	viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	//nolint:errcheck
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetDefault("concurrency", 20)

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("cacache %s (commit %s, built %s)\n", version, commit, date))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := config.Dir()
		if err == nil {
			viper.AddConfigPath(configDir)
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables: CACACHE_CONCURRENCY, CACACHE_VERBOSE, etc.
	viper.SetEnvPrefix("CACACHE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config:", viper.ConfigFileUsed())
		}
	}
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// verifyOptions builds cacache.Options from the bound viper state.
func verifyOptions() cacache.Options {
	opts := cacache.Options{
		Concurrency: viper.GetInt("concurrency"),
	}
	if viper.GetBool("verbose") {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return opts
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// formatError converts cacache errors to user-friendly messages.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, cacache.ErrCacheRootUnusable):
		return fmt.Sprintf("Error: cache root unusable: %v", err)
	case errors.Is(err, cacache.ErrNoLastVerified):
		return "Error: cache has never been verified"
	case errors.Is(err, context.Canceled):
		return "Error: operation canceled"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
