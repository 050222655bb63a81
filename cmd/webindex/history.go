package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nao1215/webindex/internal/database"
	"github.com/nao1215/webindex/internal/report"
)

// defaultHistoryLimit is how many runs the history command lists.
const defaultHistoryLimit = 20

// errNoHistory is returned when the data directory has no crawl log yet.
var errNoHistory = errors.New("no crawl history")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past crawl runs from the crawl log",
		Long: `History reads the crawl log in the data directory.

Without arguments it lists the most recent runs. With a run id it shows
how many URLs ended in each state (extracted, robots denied, fetch error
and so on). With --compare it lists the pages that were added, removed or
changed between two runs, using the content hash of every extracted page.

Examples:
  # List recent runs
  webindex history

  # Show one run, including every URL
  webindex history 7 --outcomes

  # What changed between run 6 and run 7
  webindex history 7 --compare 6`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().Int64("compare", 0,
		"Compare the run with this earlier run id")
	cmd.Flags().Bool("outcomes", false,
		"Include every recorded URL in the run detail")
	addReportFlags(cmd)
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
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
	compareWith, err := cmd.Flags().GetInt64("compare")
	if err != nil {
		return err
	}
	withOutcomes, err := cmd.Flags().GetBool("outcomes")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var runID int64
	if len(args) == 1 {
		runID, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil || runID <= 0 {
			return fmt.Errorf("invalid run id %q: must be a positive integer", args[0])
		}
	}
	if compareWith != 0 && runID == 0 {
		return errors.New("--compare requires a run id argument")
	}
	setupLogger(cmd)

	db, err := database.Open(cfg.DataDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("%w in %s", errNoHistory, filepath.Clean(cfg.DataDir))
	}
	defer db.Close()

	ctx := cmd.Context()
	out := &report.HistoryReport{}

	switch {
	case compareWith != 0:
		out.Diff, err = db.CompareRuns(ctx, compareWith, runID)
		if err != nil {
			return err
		}

	case runID != 0:
		if out.Run, err = db.GetRun(ctx, runID); err != nil {
			return err
		}
		if out.Counts, err = db.CountStates(ctx, runID); err != nil {
			return err
		}
		if withOutcomes {
			if out.Outcomes, err = db.ListOutcomes(ctx, runID); err != nil {
				return err
			}
		}

	default:
		if out.Runs, err = db.ListRuns(ctx, limit); err != nil {
			return err
		}
	}

	w := newReportWriter(cmd, cfg)
	if withOutcomes && !cfg.JSONReport && !cfg.MarkdownReport {
		w = report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(true))
	}
	_, err = w.WriteHistory(out)
	return err
}
