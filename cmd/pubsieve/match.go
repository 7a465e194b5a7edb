package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matsen/pubsieve/internal/alert"
	"github.com/matsen/pubsieve/internal/config"
	"github.com/matsen/pubsieve/internal/history"
	"github.com/matsen/pubsieve/internal/library"
	"github.com/matsen/pubsieve/internal/match"
	"github.com/matsen/pubsieve/internal/redirect"
	"github.com/matsen/pubsieve/internal/report"
)

var matchConfigPath string

func init() {
	matchCmd.Flags().StringVar(&matchConfigPath, "config", "", "Path to run config YAML")
	rootCmd.AddCommand(matchCmd)
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match newly reported pubs against the library and past runs",
	Long: `Match newly reported pubs with pubs in a library, and/or pubs from
earlier runs, and generate an actionable report that can be used to add
the new pubs to the library.

Configuration comes from the --config YAML file; any PUBSIEVE_*
environment variable overrides its file counterpart.`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

func runMatch(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := config.Load(matchConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitConfigError)
	}

	if err := matchRun(cmd.Context(), cfg, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitDataError)
	}
	return nil
}

// matchRun is one full matching run: library, then alerts, then history
// overlay, then the report and the updated history store. Any failure
// before the store is written leaves the last known-good store untouched.
func matchRun(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	lib, err := library.Open(cfg.LibType, cfg.LibPath, cfg.OnlineLibURL, log)
	if err != nil {
		return err
	}

	msgs, err := alert.LoadMessageDir(cfg.AlertDir)
	if err != nil {
		return err
	}
	registry := alert.NewRegistry()
	if len(cfg.Sources) > 0 && cfg.Sources[0] != "all" {
		if registry, err = registry.Restrict(cfg.Sources); err != nil {
			return err
		}
	}
	pubAlerts, err := registry.Parse(msgs, log)
	if err != nil {
		// A failed source is fatal: writing the history store after a
		// partial alert sweep would record pubs as handled that were
		// never seen.
		return err
	}
	log.Info().
		Int("messages", len(msgs)).
		Int("pub_alerts", len(pubAlerts)).
		Msg("alerts parsed")

	okDups, err := readLines(cfg.OkDupTitles)
	if err != nil {
		return err
	}
	idx := match.NewIndex(okDups, log)
	idx.SeedLibrary(lib.Pubs())
	idx.AddPubAlerts(pubAlerts)

	var store *history.Store
	if cfg.KnownPubsIn != "" {
		if store, err = history.Load(cfg.KnownPubsIn, log); err != nil {
			return err
		}
		idx.OverlayHistory(store)
	}

	excludes, err := alert.LoadExcludeSet(cfg.ExcludeAlerts)
	if err != nil {
		return err
	}

	if err := writeCurationPage(ctx, cfg, lib, excludes, idx, log); err != nil {
		return err
	}

	if cfg.KnownPubsOut != "" {
		if store == nil {
			store = history.NewStore()
		}
		for _, rec := range idx.NewHistoryRecords(excludes) {
			store.Add(rec)
		}
		if err := store.Write(cfg.KnownPubsOut, log); err != nil {
			return err
		}
		log.Info().
			Str("path", cfg.KnownPubsOut).
			Int("records", store.Len()).
			Msg("known pubs written")
	}
	return nil
}

func writeCurationPage(ctx context.Context, cfg *config.Config, lib library.Reader, excludes *alert.ExcludeSet, idx *match.Index, log zerolog.Logger) error {
	backend, err := openRedirectCache(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	resolver := redirect.NewResolver(backend, log)

	renderer := report.NewRenderer(lib, excludes, resolver, report.Options{
		Proxy:           cfg.Proxy,
		ProxySeparator:  cfg.ProxySeparatorChar(),
		CustomSearchURL: cfg.CustomSearchURL,
	}, log)

	f, err := os.Create(cfg.CurationPage)
	if err != nil {
		return fmt.Errorf("creating curation page: %w", err)
	}
	defer f.Close()

	clusters := idx.ClustersWithAlerts()
	if err := renderer.WriteCuration(ctx, f, clusters); err != nil {
		return fmt.Errorf("writing curation page: %w", err)
	}
	log.Info().
		Str("path", cfg.CurationPage).
		Int("pubs", len(clusters)).
		Msg("curation page written")
	return nil
}

func openRedirectCache(cfg *config.Config) (redirect.Backend, error) {
	if cfg.RedirectCache == "" {
		return redirect.NewMemoryBackend(), nil
	}
	return redirect.OpenSQLite(cfg.RedirectCache)
}

// readLines reads a newline-delimited list file; an empty path yields nil.
func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}
