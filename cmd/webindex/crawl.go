package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webindex/internal/config"
	"github.com/nao1215/webindex/internal/database"
	"github.com/nao1215/webindex/internal/metrics"
	"github.com/nao1215/webindex/internal/pipeline"
	"github.com/nao1215/webindex/internal/report"
	"github.com/nao1215/webindex/internal/store"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl websites and save the extracted documents",
		Long: `Crawl fetches the seed URLs and the pages they link to, breadth first.

Every request honors robots.txt for the configured user agent and waits
at least --delay since the previous request to the same host (or the
robots.txt Crawl-delay, whichever is longer). The visible text, images
and videos of every HTML page are saved to documents.json in the data
directory, replacing the previous crawl. An interrupted crawl leaves the
previous documents.json in place.

Examples:
  # Crawl a site and the pages it links to
  webindex crawl https://example.com/

  # Go two links deep, stop after 200 pages, four requests in flight
  webindex crawl -d 2 -p 200 -w 4 https://example.com/

  # Follow links to other hosts too
  webindex crawl --same-origin=false https://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, args, false)
		},
	}
	addCrawlFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [seed-url...]",
		Short: "Crawl websites and index the result in one go",
		Long: `Build runs crawl followed by index.

Examples:
  webindex build https://example.com/
  webindex build --json https://a.example/ https://b.example/`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, args, true)
		},
	}
	addCrawlFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// addCrawlFlags adds the crawl limit and politeness flags.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from a seed")
	cmd.Flags().IntP("max-pages", "p", config.DefaultPageLimit,
		"Maximum number of documents to extract")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Minimum delay between requests to the same host")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().Duration("robots-timeout", config.DefaultRobotsTimeout,
		"Timeout for each robots.txt request")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User agent for requests and robots.txt matching")
	cmd.Flags().Bool("same-origin", true,
		"Only follow links to the origin of the page they were found on")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of pages fetched concurrently")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum number of bytes read from a response")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the crawl log")
}

// applyCrawlFlags copies the crawl flags into cfg.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return err
	}
	if cfg.PageLimit, err = flags.GetInt("max-pages"); err != nil {
		return err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.RobotsTimeout, err = flags.GetDuration("robots-timeout"); err != nil {
		return err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return err
	}
	if cfg.SameOrigin, err = flags.GetBool("same-origin"); err != nil {
		return err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return err
	}
	return nil
}

// runJob crawls args and, when withIndex is set, indexes the result.
func runJob(cmd *cobra.Command, args []string, withIndex bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	cfg.Seeds = args
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rec := metrics.NewRecorder()
	crawlOpts := []pipeline.CrawlStepOption{
		pipeline.WithCrawlLogger(logger),
		pipeline.WithCrawlRecorders(rec),
	}
	if !noHistory {
		db, err := database.Open(cfg.DataDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open crawl log: %w", err)
		}
		defer db.Close()
		crawlOpts = append(crawlOpts, pipeline.WithCrawlLog(db))
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(pipeline.NewCrawlStep(cfg, crawlOpts...), pipeline.SaveDocumentsStep{})
	if withIndex {
		p.AddSteps(pipeline.NewIndexStep(rec, logger), pipeline.SaveIndexStep{})
	}

	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"depth", cfg.MaxDepth,
		"pages", cfg.PageLimit,
		"workers", cfg.Workers,
		"dataDir", cfg.DataDir,
	)

	state := pipeline.NewState(store.New(cfg.DataDir), cfg.Seeds...)
	start := time.Now()
	runErr := p.Execute(ctx, state)

	summary := report.NewCrawlSummary(cfg.Seeds, state.RunID, state.Crawl, time.Since(start), runErr)
	summary.Terms = len(state.Index)
	if _, err := newReportWriter(cmd, cfg).WriteCrawl(summary); err != nil {
		logger.Error("failed to write report", "error", err)
	}

	if err := writeMetrics(cfg, rec, logger); err != nil {
		logger.Error("metrics export failed", "error", err)
	}

	if runErr != nil {
		if isInterrupted(runErr) {
			logger.Warn("crawl interrupted; previous artifacts were kept")
		}
		return runErr
	}
	return nil
}

