package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/pubsieve/internal/history"
	"github.com/matsen/pubsieve/internal/library"
)

var (
	initHistoryLibType string
	initHistoryLibURL  string
)

func init() {
	initHistoryCmd.Flags().StringVar(&initHistoryLibType, "libtype", "zotero", "Library export format")
	initHistoryCmd.Flags().StringVar(&initHistoryLibURL, "liburl", "", "Base URL of the online library")
	rootCmd.AddCommand(initHistoryCmd)
}

var initHistoryCmd = &cobra.Command{
	Use:   "init-history <library-export> <known-pubs-out>",
	Short: "Bootstrap a known-pubs history from a library export",
	Long: `Bootstrap a known-pubs history from a library export.

Every pub in the library becomes a history record in the in-library
state, so the first real matching run starts with the library already
marked as seen.`,
	Args: cobra.ExactArgs(2),
	RunE: runInitHistory,
}

func runInitHistory(cmd *cobra.Command, args []string) error {
	log := newLogger()

	lib, err := library.Open(initHistoryLibType, args[0], initHistoryLibURL, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitDataError)
	}

	store := history.NewStore()
	for _, p := range lib.Pubs() {
		rec := history.NewRecord()
		rec.SetTitle(p.Title)
		rec.Authors = p.Authors
		rec.SetDOI(p.CanonicalDOI, log)
		rec.State = history.StateInLib
		rec.Annotation = "Imported from " + lib.ServiceName()
		store.Add(rec)
	}
	if err := store.Write(args[1], log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
	log.Info().Int("records", store.Len()).Str("path", args[1]).Msg("history bootstrapped")
	return nil
}
