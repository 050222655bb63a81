package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/webindex/internal/metrics"
	"github.com/nao1215/webindex/internal/pipeline"
	"github.com/nao1215/webindex/internal/store"
)

// NewIndexCmd creates the index command.
func NewIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build the inverted index from the last crawl",
		Long: `Index reads documents.json from the data directory, tokenizes the text
of every document and writes inverted_index.json and
inverted_index_doc_map.json. Document ids are assigned 1..N in the order
the documents were crawled.

Examples:
  webindex index
  webindex index -D ./data`,
		Args: cobra.NoArgs,
		RunE: runIndexCmd,
	}
}

func runIndexCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd)
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rec := metrics.NewRecorder()
	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.LoadDocumentsStep{},
		pipeline.NewIndexStep(rec, logger),
		pipeline.SaveIndexStep{},
	)

	st := store.New(cfg.DataDir)
	state := pipeline.NewState(st)
	if err := p.Execute(ctx, state); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents (%d terms) into %s\n",
		len(state.DocumentMap), len(state.Index), st.IndexPath())

	return writeMetrics(cfg, rec, logger)
}
