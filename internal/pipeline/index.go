package pipeline

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/searchindex"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/tracing"
)

// IndexSpec says what to load into a search index.
type IndexSpec struct {
	Mode       retrieval.Mode
	Similarity retrieval.Similarity
	Selection  corpus.Selection
	Analyzer   string
	Bulk       searchindex.BulkOptions
}

// weighted reports whether documents carry a weight field: only type
// documents scored with the custom similarity do.
func (s IndexSpec) weighted() bool {
	return s.Mode == retrieval.TypeCentric && s.Similarity == retrieval.Custom
}

// Index resets idx and loads the corpus spec asks for.
func (b *Builder) Index(ctx context.Context, idx searchindex.Index, spec IndexSpec) (searchindex.BulkReport, error) {
	ctx, span := tracing.Start(ctx, "pipeline.index")
	span.SetAttr("mode", spec.Mode.String())
	span.SetAttr("similarity", spec.Similarity.String())

	var (
		docs corpus.Corpus
		err  error
	)
	if spec.Mode == retrieval.TypeCentric {
		docs, err = b.TypeDocuments(ctx, spec.Selection, spec.weighted(), false)
	} else {
		docs, err = b.EntityDocuments(ctx, spec.Selection, false)
	}
	if err != nil {
		span.Finish(err)
		return searchindex.BulkReport{}, err
	}
	span.SetAttr("documents", len(docs))

	report, err := searchindex.Populate(ctx, idx, docs, searchindex.Mapping{Analyzer: spec.Analyzer, WithWeight: spec.weighted()}, spec.Bulk)
	span.Finish(err)
	return report, err
}

// Strategy assembles the retrieval strategy for mode over idx, loading the
// transitive types and weights entity-centric scoring needs.
func (b *Builder) Strategy(ctx context.Context, mode retrieval.Mode, idx searchindex.Index) (retrieval.Strategy, error) {
	deps := retrieval.Deps{Index: idx, Metrics: b.opts.Metrics}
	if mode == retrieval.EntityCentric {
		var err error
		if deps.Types, err = b.InstanceTypes(ctx, true, false); err != nil {
			return nil, err
		}
		if deps.Weights, err = b.TypeWeights(ctx, false); err != nil {
			return nil, err
		}
	}
	return retrieval.NewStrategy(mode, deps)
}
