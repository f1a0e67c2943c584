package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/searchindex"
)

var (
	indexFlags        modeFlags
	flagIndexAnalyzer string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Recreate a search index and bulk load its documents",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexFlags.mode, "mode", "", "retrieval mode: EC or TC (default search.mode)")
	indexCmd.Flags().StringVar(&indexFlags.similarity, "similarity", "", "similarity: default or custom (default search.similarity)")
	indexCmd.Flags().StringVar(&indexFlags.source, "source", "", "body source: all, long, short or anchor (default search.bodySource)")
	indexCmd.Flags().StringVar(&flagIndexAnalyzer, "analyzer", "", "body analyzer: en or suffix (default search.analyzer)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	mode, sim, sel, err := indexFlags.withDefaults(cfg.Search).parse()
	if err != nil {
		return err
	}
	analyzer := flagIndexAnalyzer
	if analyzer == "" {
		analyzer = cfg.Search.Analyzer
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	idx, err := a.openIndex(mode, sim)
	if err != nil {
		return err
	}
	report, err := a.builder.Index(ctx, idx, pipeline.IndexSpec{
		Mode:       mode,
		Similarity: sim,
		Selection:  sel,
		Analyzer:   analyzer,
		Bulk: searchindex.BulkOptions{
			Workers:   cfg.Search.BulkWorkers,
			QueueSize: cfg.Search.BulkQueueSize,
			ChunkSize: cfg.Search.BulkChunkSize,
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d indexed, %d failed\n", idx.Name(), report.Indexed, len(report.Failures))
	return nil
}
