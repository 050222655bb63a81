package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/webindex/internal/metrics"
	"github.com/nao1215/webindex/internal/report"
	"github.com/nao1215/webindex/internal/search"
	"github.com/nao1215/webindex/internal/store"
)

// defaultSearchLimit is how many hits the search command prints.
const defaultSearchLimit = 20

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index for pages containing the query terms",
		Long: `Search tokenizes the query the same way pages were tokenized and ranks
every page by the number of distinct query terms it contains. Pages with
the same score keep index order.

All arguments are joined into one query.

Examples:
  webindex search gopher
  webindex search "concurrent garbage collector" -n 5
  webindex search --json gopher`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}
	cmd.Flags().IntP("limit", "n", defaultSearchLimit,
		"Maximum number of results (0 for all)")
	addReportFlags(cmd)
	return cmd
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("invalid limit %d: must be non-negative", limit)
	}
	logger := setupLogger(cmd)

	rec := metrics.NewRecorder()
	s := search.Load(store.New(cfg.DataDir),
		search.WithLimit(limit),
		search.WithObserver(rec),
		search.WithLogger(logger),
	)

	query := strings.Join(args, " ")
	out := report.NewSearchReport(query, s.Ready(), s.SearchHits(query))
	if _, err := newReportWriter(cmd, cfg).WriteSearch(out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return writeMetrics(cfg, rec, logger)
}
