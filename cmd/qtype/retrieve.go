package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/runstore"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/logger"
)

var (
	retrieveFlags       modeFlags
	flagRetrieveDataset []string
	flagRetrieveK       int
	flagRetrieveForce   bool
	flagRetrieveSave    bool
	flagRetrieveOut     string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Rank answer types for every question of one or more datasets",
	Long: `retrieve runs the selected strategy over each dataset and memoizes the
raw results as top{k}_{mode}_{similarity}_{dataset}.json. With --save the
ranked predictions are also stored as a prediction run.`,
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveFlags.mode, "mode", "", "retrieval mode: EC or TC (default search.mode)")
	retrieveCmd.Flags().StringVar(&retrieveFlags.similarity, "similarity", "", "similarity: default or custom (default search.similarity)")
	retrieveCmd.Flags().StringSliceVar(&flagRetrieveDataset, "dataset", []string{"train", "test"}, "datasets to rank")
	retrieveCmd.Flags().IntVar(&flagRetrieveK, "k", 0, "hits per query (default search.topK)")
	retrieveCmd.Flags().BoolVar(&flagRetrieveForce, "force", false, "query the index even when results are cached")
	retrieveCmd.Flags().BoolVar(&flagRetrieveSave, "save", false, "store the predictions in the run store")
	retrieveCmd.Flags().StringVar(&flagRetrieveOut, "out", "", "also write the ranked results of the last dataset to this file")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	retrieveFlags.source = "all"
	mode, sim, _, err := retrieveFlags.withDefaults(cfg.Search).parse()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	scorer, _, err := a.scorer(ctx, mode, sim, flagRetrieveK)
	if err != nil {
		return err
	}
	var store runstore.Store
	if flagRetrieveSave {
		if store, err = a.runStore(ctx); err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("--save needs runs.backend postgres or sqlite")
		}
	}

	var last retrieval.Results
	for _, dataset := range flagRetrieveDataset {
		results, err := scorer.Results(ctx, dataset, flagRetrieveForce)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", dataset, err)
		}
		last = results
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d queries answered (%s)\n", dataset, len(results), scorer.ResultsKey(dataset))

		if store != nil {
			run := runstore.NewRun(dataset, mode, sim, scorer.K())
			if err := store.SaveRun(ctx, run, results); err != nil {
				return err
			}
			log.Info("prediction run saved", "run_id", run.ID, "dataset", dataset)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: saved as run %s\n", dataset, run.ID)
		}
	}

	if flagRetrieveOut != "" && last != nil {
		data, err := json.MarshalIndent(last, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagRetrieveOut, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", flagRetrieveOut, err)
		}
	}
	return nil
}
