// Package config provides configuration path resolution for the cacache
// CLI.
package config

import (
	"os"
	"path/filepath"
)

// CacheDir returns the default cache root to verify when none is given
// on the command line. Uses XDG_CACHE_HOME/cacache, defaulting to
// ~/.cache/cacache.
func CacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "cacache"), nil
}

// Dir returns the cacache CLI's own config directory.
// Uses XDG_CONFIG_HOME/cacache, defaulting to ~/.config/cacache.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "cacache"), nil
}
