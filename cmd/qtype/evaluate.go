package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/retrieval"
)

var (
	evaluateFlags       modeFlags
	flagEvaluateDataset string
	flagEvaluateK       int
	flagEvaluateRun     string
	flagEvaluateLatest  bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score ranked answer types against the gold types of a dataset",
	Long: `evaluate reports mean precision and NDCG at k over the resource questions
of a dataset. Predictions come from the cached retrieval results, or from a
stored prediction run with --run or --latest.`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateFlags.mode, "mode", "", "retrieval mode: EC or TC (default search.mode)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.similarity, "similarity", "", "similarity: default or custom (default search.similarity)")
	evaluateCmd.Flags().StringVar(&flagEvaluateDataset, "dataset", "test", "dataset with gold types")
	evaluateCmd.Flags().IntVar(&flagEvaluateK, "k", 10, "evaluation cutoff")
	evaluateCmd.Flags().StringVar(&flagEvaluateRun, "run", "", "evaluate a stored prediction run by ID")
	evaluateCmd.Flags().BoolVar(&flagEvaluateLatest, "latest", false, "evaluate the latest stored run of the dataset and mode")
	evaluateCmd.MarkFlagsMutuallyExclusive("run", "latest")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	evaluateFlags.source = "all"
	mode, sim, _, err := evaluateFlags.withDefaults(cfg.Search).parse()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	scorer, _, err := a.scorer(ctx, mode, sim, 0)
	if err != nil {
		return err
	}
	queries, err := retrieval.LoadQueries(scorer.DatasetPath(flagEvaluateDataset))
	if err != nil {
		return err
	}

	var results retrieval.Results
	if flagEvaluateRun != "" || flagEvaluateLatest {
		store, err := a.runStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("stored runs need runs.backend postgres or sqlite")
		}
		var id uuid.UUID
		if flagEvaluateLatest {
			run, err := store.LatestRun(ctx, flagEvaluateDataset, mode.String())
			if err != nil {
				return err
			}
			id = run.ID
		} else if id, err = uuid.Parse(flagEvaluateRun); err != nil {
			return fmt.Errorf("invalid run id %q: %w", flagEvaluateRun, err)
		}
		if _, results, err = store.LoadRun(ctx, id); err != nil {
			return err
		}
	} else if results, err = scorer.Results(ctx, flagEvaluateDataset, false); err != nil {
		return err
	}

	report := retrieval.Evaluate(queries, results, flagEvaluateK)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
