package searchindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/blevesearch/bleve/mapping"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/resilience"
)

// EnglishAnalyzer is bleve's English analyzer (possessives, stop words,
// Porter stemming).
const EnglishAnalyzer = en.AnalyzerName

// Options configures a BleveIndex.
type Options struct {
	// Path of the index directory. Empty keeps the index in memory.
	Path string
	// Name labels logs and metrics.
	Name string
	// QueryTimeout bounds every element of a MultiSearch call and every
	// HasTerm lookup.
	QueryTimeout time.Duration
	// Concurrency bounds the elements of a MultiSearch call run at once.
	Concurrency int
	Metrics     *metrics.Metrics
}

// BleveIndex implements Index on a bleve index.
type BleveIndex struct {
	opts     Options
	logger   *slog.Logger
	mu       sync.RWMutex
	idx      bleve.Index
	analyzer string
}

var _ Index = (*BleveIndex)(nil)

// Open returns a BleveIndex, opening the on-disk index at opts.Path when one
// exists. Otherwise the index stays unavailable until Reset.
func Open(opts Options) (*BleveIndex, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Name == "" {
		opts.Name = "default"
	}
	b := &BleveIndex{
		opts:   opts,
		logger: slog.Default().With("component", "searchindex", "index", opts.Name),
	}
	if opts.Path == "" {
		return b, nil
	}
	if _, err := os.Stat(opts.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return b, nil
		}
		return nil, fmt.Errorf("checking index path: %w", err)
	}
	idx, err := bleve.Open(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", opts.Path, err)
	}
	b.idx = idx
	b.analyzer = idx.Mapping().AnalyzerNameForPath(BodyField)
	b.logger.Info("index opened", "path", opts.Path, "analyzer", b.analyzer)
	return b, nil
}

// NewMemory returns an in-memory index created with m.
func NewMemory(name string, m Mapping) (*BleveIndex, error) {
	b, err := Open(Options{Name: name})
	if err != nil {
		return nil, err
	}
	if err := b.Reset(context.Background(), m); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BleveIndex) Name() string {
	return b.opts.Name
}

func buildMapping(m Mapping) (*mapping.IndexMappingImpl, string, error) {
	analyzer := m.Analyzer
	if analyzer == "" {
		analyzer = EnglishAnalyzer
	}
	if analyzer != EnglishAnalyzer && analyzer != SuffixAnalyzer {
		return nil, "", fmt.Errorf("%w: unknown analyzer %q", apperrors.ErrInvalidInput, analyzer)
	}

	body := bleve.NewTextFieldMapping()
	body.Analyzer = analyzer
	body.Store = false
	body.IncludeInAll = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(BodyField, body)
	if m.WithWeight {
		weight := bleve.NewNumericFieldMapping()
		weight.Index = false
		weight.Store = true
		weight.IncludeInAll = false
		doc.AddFieldMappingsAt(WeightField, weight)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = analyzer
	im.DefaultField = BodyField
	im.IndexDynamic = false
	im.StoreDynamic = false
	if err := im.Validate(); err != nil {
		return nil, "", fmt.Errorf("validating mapping: %w", err)
	}
	return im, analyzer, nil
}

func (b *BleveIndex) Reset(ctx context.Context, m Mapping) error {
	im, analyzer, err := buildMapping(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.idx != nil {
		if err := b.idx.Close(); err != nil {
			b.logger.Warn("closing index before reset", "error", err)
		}
		b.idx = nil
	}

	var idx bleve.Index
	if b.opts.Path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		if err := os.RemoveAll(b.opts.Path); err != nil {
			return fmt.Errorf("dropping index %s: %w", b.opts.Path, err)
		}
		idx, err = bleve.New(b.opts.Path, im)
	}
	if err != nil {
		return fmt.Errorf("creating index %s: %w", b.opts.Name, err)
	}
	b.idx = idx
	b.analyzer = analyzer
	b.logger.Info("index reset", "analyzer", analyzer, "with_weight", m.WithWeight)
	return nil
}

// acquire returns the live index under the read lock. Callers must call
// the returned release func.
func (b *BleveIndex) acquire() (bleve.Index, func(), error) {
	b.mu.RLock()
	if b.idx == nil {
		b.mu.RUnlock()
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrIndexUnavailable, b.opts.Name)
	}
	return b.idx, b.mu.RUnlock, nil
}

func (b *BleveIndex) Analyze(_ context.Context, text string) ([]Token, error) {
	idx, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	analyzer := idx.Mapping().AnalyzerNamed(b.analyzer)
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer %q not registered", b.analyzer)
	}
	stream := analyzer.Analyze([]byte(text))
	tokens := make([]Token, 0, len(stream))
	for _, t := range stream {
		tokens = append(tokens, Token{
			Term:     string(t.Term),
			Position: t.Position,
			Start:    t.Start,
			End:      t.End,
		})
	}
	return tokens, nil
}

// HasTerm is bounded by QueryTimeout like every MultiSearch element.
func (b *BleveIndex) HasTerm(ctx context.Context, term string) (bool, error) {
	return resilience.Bounded(ctx, b.opts.QueryTimeout, "term lookup", func(ctx context.Context) (bool, error) {
		return b.hasTerm(ctx, term)
	})
}

func (b *BleveIndex) hasTerm(ctx context.Context, term string) (bool, error) {
	idx, release, err := b.acquire()
	if err != nil {
		return false, err
	}
	defer release()

	q := bleve.NewTermQuery(term)
	q.SetField(BodyField)
	req := bleve.NewSearchRequestOptions(q, 1, 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return false, fmt.Errorf("term lookup %q: %w", term, err)
	}
	return res.Total > 0, nil
}

func (b *BleveIndex) Search(ctx context.Context, mr MatchRequest) ([]ScoredHit, error) {
	idx, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	size := mr.Size
	if size <= 0 {
		size = 10
	}
	q := bleve.NewMatchQuery(mr.Text)
	q.SetField(BodyField)
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", mr.Text, err)
	}
	hits := make([]ScoredHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, ScoredHit{ID: h.ID, Score: h.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

func (b *BleveIndex) MultiSearch(ctx context.Context, reqs []MatchRequest) []MultiResult {
	start := time.Now()
	results := make([]MultiResult, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(b.opts.Concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			hits, err := resilience.Bounded(ctx, b.opts.QueryTimeout, "search", func(ctx context.Context) ([]ScoredHit, error) {
				return b.Search(ctx, req)
			})
			results[i] = MultiResult{Hits: hits, Err: err}
			return nil
		})
	}
	g.Wait()

	if b.opts.Metrics != nil {
		b.opts.Metrics.SearchLatency.WithLabelValues(b.opts.Name).Observe(time.Since(start).Seconds())
	}
	return results
}

func (b *BleveIndex) DocCount() (uint64, error) {
	idx, release, err := b.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	return idx.DocCount()
}

func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.idx == nil {
		return nil
	}
	err := b.idx.Close()
	b.idx = nil
	return err
}

// Ready reports whether the index can serve queries.
func (b *BleveIndex) Ready() error {
	_, release, err := b.acquire()
	if err != nil {
		return err
	}
	release()
	return nil
}
