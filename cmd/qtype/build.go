package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/logger"
)

var (
	flagBuildStages []string
	flagBuildForce  bool
	flagBuildSource string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build and memoize the pipeline artifacts",
	Long: `build produces the ontology graph, the instance type maps, the type
weights, the entity bodies and both document corpora. Stages already in the
artifact store are loaded instead of rebuilt unless --force is given.`,
	RunE: runBuild,
}

type buildStage func(ctx context.Context, b *pipeline.Builder, sel corpus.Selection, force bool) (int, error)

var buildStages = map[string]buildStage{
	"ontology": func(ctx context.Context, b *pipeline.Builder, _ corpus.Selection, force bool) (int, error) {
		g, err := b.Ontology(ctx, force)
		if err != nil {
			return 0, err
		}
		return g.Len(), nil
	},
	"types": func(ctx context.Context, b *pipeline.Builder, _ corpus.Selection, force bool) (int, error) {
		direct, err := b.InstanceTypes(ctx, false, force)
		if err != nil {
			return 0, err
		}
		if _, err := b.InstanceTypes(ctx, true, force); err != nil {
			return 0, err
		}
		return len(direct), nil
	},
	"type-entities": func(ctx context.Context, b *pipeline.Builder, _ corpus.Selection, force bool) (int, error) {
		te, err := b.TypeEntities(ctx, force)
		return len(te), err
	},
	"weights": func(ctx context.Context, b *pipeline.Builder, _ corpus.Selection, force bool) (int, error) {
		w, err := b.TypeWeights(ctx, force)
		return len(w), err
	},
	"bodies": func(ctx context.Context, b *pipeline.Builder, sel corpus.Selection, force bool) (int, error) {
		bodies, err := b.EntityBodies(ctx, sel, force)
		return len(bodies), err
	},
	"documents": func(ctx context.Context, b *pipeline.Builder, sel corpus.Selection, force bool) (int, error) {
		ec, err := b.EntityDocuments(ctx, sel, force)
		if err != nil {
			return 0, err
		}
		for _, weighted := range []bool{false, true} {
			if _, err := b.TypeDocuments(ctx, sel, weighted, force); err != nil {
				return 0, err
			}
		}
		return len(ec), nil
	},
}

var buildOrder = []string{"ontology", "types", "type-entities", "weights", "bodies", "documents"}

func init() {
	buildCmd.Flags().StringSliceVar(&flagBuildStages, "stage", nil, "stages to build ("+strings.Join(buildOrder, ", ")+"); default all")
	buildCmd.Flags().BoolVar(&flagBuildForce, "force", false, "rebuild the named stages even when cached")
	buildCmd.Flags().StringVar(&flagBuildSource, "source", "", "body source: all, long, short or anchor (default search.bodySource)")
	rootCmd.AddCommand(buildCmd)
}

func selectStages(names []string) ([]string, error) {
	if len(names) == 0 {
		return buildOrder, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := buildStages[n]; !ok {
			known := make([]string, 0, len(buildStages))
			for k := range buildStages {
				known = append(known, k)
			}
			sort.Strings(known)
			return nil, fmt.Errorf("unknown stage %q (known: %s)", n, strings.Join(known, ", "))
		}
		wanted[n] = true
	}
	out := make([]string, 0, len(wanted))
	for _, n := range buildOrder {
		if wanted[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	stages, err := selectStages(flagBuildStages)
	if err != nil {
		return err
	}
	source := flagBuildSource
	if source == "" {
		source = cfg.Search.BodySource
	}
	sel, err := corpus.ParseSelection(source)
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

	for _, name := range stages {
		start := time.Now()
		n, err := buildStages[name](ctx, a.builder, sel, flagBuildForce)
		if err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
		log.Info("stage ready", "stage", name, "entries", n, "duration", time.Since(start).Round(time.Millisecond))
	}
	hits, _, rebuilds := a.builder.Cache().Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%d stage(s) ready: %d artifact(s) loaded, %d rebuilt\n", len(stages), hits, rebuilds)
	return nil
}
