package searchindex

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
)

// Populate recreates idx with m and loads docs in ID order. Progress is
// logged every tenth of the corpus and every rejected document is logged.
func Populate(ctx context.Context, idx Index, docs corpus.Corpus, m Mapping, opts BulkOptions) (BulkReport, error) {
	log := slog.Default().With("component", "populate")
	if err := idx.Reset(ctx, m); err != nil {
		return BulkReport{}, fmt.Errorf("resetting index: %w", err)
	}

	ids := docs.IDs()
	total := len(ids)
	step := total / 10
	if step == 0 {
		step = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := make(chan corpus.Document)
	go func() {
		defer close(feed)
		for i, id := range ids {
			doc := docs[id]
			doc.ID = id
			select {
			case feed <- doc:
			case <-ctx.Done():
				return
			}
			if (i+1)%step == 0 {
				log.Info("indexing progress", "sent", i+1, "total", total, "percent", (i+1)*100/total)
			}
		}
	}()

	report, err := idx.BulkLoad(ctx, feed, opts)
	for _, f := range report.Failures {
		log.Warn("document failed", "id", f.ID, "reason", f.Reason)
	}
	if err != nil {
		return report, fmt.Errorf("bulk loading: %w", err)
	}
	log.Info("index populated", "indexed", report.Indexed, "failed", len(report.Failures))
	return report, nil
}

// AnalyzeQuery runs text through the index analyzer and keeps, in position
// order, the terms that occur in at least one document.
func AnalyzeQuery(ctx context.Context, idx Index, text string) ([]string, error) {
	tokens, err := idx.Analyze(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("analyzing query: %w", err)
	}
	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].Position < tokens[j].Position })

	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		ok, err := idx.HasTerm(ctx, t.Term)
		if err != nil {
			return nil, err
		}
		if ok {
			terms = append(terms, t.Term)
		}
	}
	return terms, nil
}
