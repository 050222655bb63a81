package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/webindex/internal/config"
)

// NewRootCmd creates the root command for webindex.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webindex",
		Short: "Polite web crawler, indexer and keyword search",
		Long: `webindex crawls websites while honoring robots.txt and a per-host delay,
builds an inverted index of the visible text of every page it fetched,
and ranks pages by how many query terms they contain.

Artifacts (documents.json, inverted_index.json, inverted_index_doc_map.json)
and the crawl log (webindex.db) are kept in the data directory.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("data-dir", "D", config.XDGDataDir(),
		"Directory for documents, index and crawl log")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .webindex in current or home directory)")
	cmd.PersistentFlags().String("metrics-file", "",
		"Write Prometheus metrics to this file when the command finishes")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewBuildCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
