package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/artifact"
	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

// ScorerOptions configures a Scorer.
type ScorerOptions struct {
	K          int
	Similarity Similarity
	// Datasets maps dataset names to query files. Names without an entry
	// resolve to "<DatasetDir>/<name>_set.json".
	Datasets   map[string]string
	DatasetDir string
}

// Scorer runs a Strategy over whole datasets, memoizing the raw retrieval
// results in the artifact cache, or over ad hoc queries without caching.
type Scorer struct {
	strategy Strategy
	cache    *artifact.Cache
	opts     ScorerOptions
	logger   *slog.Logger
}

func NewScorer(strategy Strategy, cache *artifact.Cache, opts ScorerOptions) *Scorer {
	opts.K = normalizeK(opts.K)
	return &Scorer{
		strategy: strategy,
		cache:    cache,
		opts:     opts,
		logger:   slog.Default().With("component", "scorer", "mode", strategy.Mode().String()),
	}
}

func (s *Scorer) Mode() Mode { return s.strategy.Mode() }

func (s *Scorer) K() int { return s.opts.K }

// ResultsKey names the cached raw results of dataset, such as
// "top100_EC_default_train.json".
func (s *Scorer) ResultsKey(dataset string) string {
	return artifact.Key(fmt.Sprintf("top%d", s.opts.K), s.strategy.Mode().String(), s.opts.Similarity.String(), dataset)
}

// DatasetPath returns the query file of dataset.
func (s *Scorer) DatasetPath(dataset string) string {
	if p, ok := s.opts.Datasets[dataset]; ok {
		return p
	}
	return filepath.Join(s.opts.DatasetDir, dataset+"_set.json")
}

// Raw returns the memoized retrieval results of dataset.
func (s *Scorer) Raw(ctx context.Context, dataset string, force bool) (Results, error) {
	return artifact.Memoize(ctx, s.cache, s.ResultsKey(dataset), force, func(ctx context.Context) (Results, error) {
		queries, err := LoadQueries(s.DatasetPath(dataset))
		if err != nil {
			return nil, err
		}
		start := time.Now()
		out, err := s.strategy.Retrieve(ctx, queries, s.opts.K)
		if err != nil {
			return nil, fmt.Errorf("retrieving %s: %w", dataset, err)
		}
		if n := len(out.Failed); n > 0 {
			return nil, fmt.Errorf("retrieving %s: %d queries failed (first %s), results not stored: %w",
				dataset, n, out.Failed[0], apperrors.ErrIncomplete)
		}
		s.logger.Info("dataset retrieved",
			"dataset", dataset,
			"queries", len(queries),
			"answered", len(out.Results),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return out.Results, nil
	})
}

// Results returns the ranked types of every answered query of dataset.
func (s *Scorer) Results(ctx context.Context, dataset string, force bool) (Results, error) {
	raw, err := s.Raw(ctx, dataset, force)
	if err != nil {
		return nil, err
	}
	return s.strategy.Score(ctx, raw, s.opts.K)
}

// Predict ranks types for queries without touching the cache. k <= 0 uses
// the configured k. Failed queries are reported in the Outcome.
func (s *Scorer) Predict(ctx context.Context, queries []Query, k int) (Outcome, error) {
	if k <= 0 {
		k = s.opts.K
	}
	out, err := s.strategy.Retrieve(ctx, Clean(queries), k)
	if err != nil {
		return Outcome{}, err
	}
	if out.Results, err = s.strategy.Score(ctx, out.Results, k); err != nil {
		return Outcome{}, err
	}
	return out, nil
}
