// Package main provides the pubsieve CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pubsieve",
	Short: "Match publication alerts against a curated library",
	Long: `pubsieve tracks publications that reference a topic of interest.

It reconciles alert emails from indexing services against a curated
library and the curation history of previous runs, clusters the
descriptions that refer to the same paper, and produces an actionable
report for adding new papers to the library.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(func() {
		// .env is a convenience for local runs; absence is fine.
		_ = godotenv.Load()
	})
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug detail")
	rootCmd.Version = Version
}

// newLogger builds the operator-facing logger. Data-quality warnings from
// the engine land here.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
