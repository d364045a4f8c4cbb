// Package main provides the bibp CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/matsen/bibproxy/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	// configPath overrides the default config file location
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so Cobra's own errors are printed here
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibp",
	Short: "Bibliography fragments and publication redirects",
	Long: `bibp loads bibliography fragments into pages and redirects citation
keys to publication pages.

Core features:
  - fetch: load an author's bibliography fragment into a page element
  - redirect: turn a citation key into its publication page URL
  - serve: run the bibliography proxy and publication pages
  - import: load a BibTeX file into the SQLite store

All commands output JSON by default for agent integration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/bibp/config.yml)")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// newLogger returns a text logger on stderr at the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
