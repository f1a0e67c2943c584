package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/instancetype"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/searchindex"
	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/metrics"
)

// DefaultK is the number of hits kept per query when k is not set.
const DefaultK = 100

// Strategy is one retrieval mode. Retrieve produces the raw per-query hits
// from the index and Score turns them into ranked types. A failing query
// only fails its own entry; Retrieve errors only when ctx ends.
type Strategy interface {
	Mode() Mode
	Retrieve(ctx context.Context, queries []Query, k int) (Outcome, error)
	Score(ctx context.Context, raw Results, k int) (Results, error)
}

// Deps are the collaborators of a Strategy. Types and Weights are only read
// by the entity-centric strategy.
type Deps struct {
	Index   searchindex.Index
	Types   instancetype.Map
	Weights instancetype.Weights
	Metrics *metrics.Metrics
}

// NewStrategy returns the strategy for mode.
func NewStrategy(mode Mode, deps Deps) (Strategy, error) {
	if deps.Index == nil {
		return nil, fmt.Errorf("%w: no search index for %s retrieval", apperrors.ErrInvalidInput, mode)
	}
	base := strategyBase{
		mode:    mode,
		index:   deps.Index,
		metrics: deps.Metrics,
		logger:  slog.Default().With("component", "retrieval", "mode", mode.String()),
	}
	switch mode {
	case EntityCentric:
		if deps.Types == nil {
			return nil, fmt.Errorf("%w: entity-centric retrieval needs instance types", apperrors.ErrInvalidInput)
		}
		return &entityCentric{strategyBase: base, types: deps.Types, weights: deps.Weights}, nil
	case TypeCentric:
		return &typeCentric{strategyBase: base}, nil
	}
	return nil, fmt.Errorf("%w: %d", apperrors.ErrUnknownMode, int(mode))
}

type strategyBase struct {
	mode    Mode
	index   searchindex.Index
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func (b strategyBase) Mode() Mode { return b.mode }

func (b strategyBase) count(outcome string, n int) {
	if b.metrics != nil && n > 0 {
		b.metrics.RetrievalQueriesTotal.WithLabelValues(b.mode.String(), outcome).Add(float64(n))
	}
}

// analyzed holds a resource query and its usable terms.
type analyzed struct {
	id    string
	terms []string
}

// analyze keeps the resource queries that still have terms once unknown
// terms are dropped. Queries that cannot be analyzed are returned as failed.
func (b strategyBase) analyze(ctx context.Context, queries []Query) ([]analyzed, []string, error) {
	var (
		out    []analyzed
		failed []string
	)
	empty := 0
	for _, q := range Resource(queries) {
		terms, err := searchindex.AnalyzeQuery(ctx, b.index, q.Question)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			b.logger.Warn("query analysis failed", "query_id", q.ID, "error", err)
			failed = append(failed, q.ID)
			continue
		}
		if len(terms) == 0 {
			empty++
			b.logger.Debug("query has no indexed terms", "query_id", q.ID)
			continue
		}
		out = append(out, analyzed{id: q.ID, terms: terms})
	}
	b.count("no_terms", empty)
	b.count("error", len(failed))
	return out, failed, nil
}

func normalizeK(k int) int {
	if k <= 0 {
		return DefaultK
	}
	return k
}

type entityCentric struct {
	strategyBase
	types   instancetype.Map
	weights instancetype.Weights
}

// Retrieve issues one match request per query, all in a single batch.
func (s *entityCentric) Retrieve(ctx context.Context, queries []Query, k int) (Outcome, error) {
	k = normalizeK(k)
	qs, failed, err := s.analyze(ctx, queries)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Results: make(Results, len(qs)), Failed: failed}
	if len(qs) == 0 {
		return out, nil
	}

	reqs := make([]searchindex.MatchRequest, len(qs))
	for i, q := range qs {
		reqs[i] = searchindex.MatchRequest{Text: strings.Join(q.terms, " "), Size: k}
	}
	searchFailed := 0
	for i, r := range s.index.MultiSearch(ctx, reqs) {
		if r.Err != nil {
			searchFailed++
			s.logger.Warn("query failed", "query_id", qs[i].id, "error", r.Err)
			out.Failed = append(out.Failed, qs[i].id)
			continue
		}
		out.Results[qs[i].id] = r.Hits
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	s.count("error", searchFailed)
	s.count("ok", len(out.Results))
	return out, nil
}

func (s *entityCentric) Score(ctx context.Context, raw Results, k int) (Results, error) {
	k = normalizeK(k)
	out := make(Results, len(raw))
	for qid, hits := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[qid] = Aggregate(hits, s.types, s.weights, k)
	}
	return out, nil
}

type typeCentric struct {
	strategyBase
}

// Retrieve matches every analyzed term on its own and sums the scores each
// type collects. The requests of all queries go out in one batch. A query
// with a failed term request is failed as a whole, since its sum would be
// short.
func (s *typeCentric) Retrieve(ctx context.Context, queries []Query, k int) (Outcome, error) {
	k = normalizeK(k)
	qs, failed, err := s.analyze(ctx, queries)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Results: make(Results, len(qs)), Failed: failed}
	if len(qs) == 0 {
		return out, nil
	}

	var reqs []searchindex.MatchRequest
	offsets := make([]int, len(qs)+1)
	for i, q := range qs {
		offsets[i] = len(reqs)
		for _, term := range q.terms {
			reqs = append(reqs, searchindex.MatchRequest{Text: term, Size: k})
		}
	}
	offsets[len(qs)] = len(reqs)

	multi := s.index.MultiSearch(ctx, reqs)
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	searchFailed := 0
	for i, q := range qs {
		acc := newAccumulator()
		ok := true
		for j := offsets[i]; j < offsets[i+1]; j++ {
			r := multi[j]
			if r.Err != nil {
				s.logger.Warn("term query failed", "query_id", q.id, "term", reqs[j].Text, "error", r.Err)
				ok = false
				break
			}
			for _, hit := range r.Hits {
				acc.add(hit.ID, hit.Score)
			}
		}
		if !ok {
			searchFailed++
			out.Failed = append(out.Failed, q.id)
			continue
		}
		out.Results[q.id] = acc.ranked(k)
	}
	s.count("error", searchFailed)
	s.count("ok", len(out.Results))
	return out, nil
}

// Score returns raw unchanged: type-centric hits are already types.
func (s *typeCentric) Score(_ context.Context, raw Results, _ int) (Results, error) {
	return raw, nil
}
