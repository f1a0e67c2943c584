package searchindex

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/metrics"
)

func testCorpus() corpus.Corpus {
	return corpus.BuildEntityDocuments(map[string]string{
		"Oslo":      "Oslo is the capital city of Norway",
		"Bergen":    "Bergen is a city on the west coast of Norway",
		"Tom_Hanks": "Tom Hanks is an American actor and filmmaker",
		"Queen":     "Queen were a British rock band formed in London",
	})
}

func populated(t *testing.T, analyzer string) *BleveIndex {
	t.Helper()
	idx, err := Open(Options{Name: "test", QueryTimeout: 5 * time.Second, Metrics: metrics.New(nil)})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	report, err := Populate(context.Background(), idx, testCorpus(), Mapping{Analyzer: analyzer}, BulkOptions{Workers: 2, ChunkSize: 3})
	require.NoError(t, err)
	require.Equal(t, 4, report.Indexed)
	require.Empty(t, report.Failures)
	return idx
}

func TestSuffixAnalyzer(t *testing.T) {
	stream := wordTokenizer{}.Tokenize([]byte("Who founded the Rolling-Stones, in 1962?"))
	terms := make([]string, len(stream))
	for i, tok := range stream {
		terms[i] = string(tok.Term)
	}
	assert.Equal(t, []string{"who", "founded", "the", "rolling", "stones", "in", "1962"}, terms)
	assert.Equal(t, 16, stream[3].Start)
	assert.Equal(t, 23, stream[3].End)

	filtered := stopStemFilter{}.Filter(stream)
	terms = terms[:0]
	for _, tok := range filtered {
		terms = append(terms, string(tok.Term))
	}
	assert.Equal(t, []string{"found", "roll", "ston", "1962"}, terms)
}

func TestUnavailableBeforeReset(t *testing.T) {
	idx, err := Open(Options{Path: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), MatchRequest{Text: "x"})
	assert.ErrorIs(t, err, apperrors.ErrIndexUnavailable)
	assert.ErrorIs(t, idx.Ready(), apperrors.ErrIndexUnavailable)
}

func TestResetRejectsUnknownAnalyzer(t *testing.T) {
	idx, err := Open(Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, idx.Reset(context.Background(), Mapping{Analyzer: "klingon"}), apperrors.ErrInvalidInput)
}

func TestSearchRanksMatchingDocuments(t *testing.T) {
	for _, analyzer := range []string{EnglishAnalyzer, SuffixAnalyzer} {
		t.Run(analyzer, func(t *testing.T) {
			idx := populated(t, analyzer)

			n, err := idx.DocCount()
			require.NoError(t, err)
			assert.Equal(t, uint64(4), n)

			hits, err := idx.Search(context.Background(), MatchRequest{Text: "capital of Norway", Size: 10})
			require.NoError(t, err)
			require.NotEmpty(t, hits)
			assert.Equal(t, "Oslo", hits[0].ID)
			for i := 1; i < len(hits); i++ {
				assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
			}
		})
	}
}

func TestAnalyzeQueryDropsUnknownTerms(t *testing.T) {
	idx := populated(t, EnglishAnalyzer)

	terms, err := AnalyzeQuery(context.Background(), idx, "Which actor starred in zorblax films?")
	require.NoError(t, err)
	assert.Equal(t, []string{"actor"}, terms)

	terms, err = AnalyzeQuery(context.Background(), idx, "the of and")
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestHasTermUnderQueryTimeout(t *testing.T) {
	idx := populated(t, SuffixAnalyzer)
	ok, err := idx.HasTerm(context.Background(), "band")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.HasTerm(context.Background(), "zorblax")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnalyzeKeepsPositions(t *testing.T) {
	idx := populated(t, SuffixAnalyzer)
	tokens, err := idx.Analyze(context.Background(), "rock bands of London")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "rock", tokens[0].Term)
	assert.Equal(t, "band", tokens[1].Term)
	assert.Equal(t, "london", tokens[2].Term)
	assert.Less(t, tokens[1].Position, tokens[2].Position)
}

func TestMultiSearchIsolatesElements(t *testing.T) {
	idx := populated(t, EnglishAnalyzer)

	results := idx.MultiSearch(context.Background(), []MatchRequest{
		{Text: "rock band", Size: 5},
		{Text: "west coast", Size: 5},
		{Text: "", Size: 5},
	})
	require.Len(t, results, 3)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "Queen", results[0].Hits[0].ID)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "Bergen", results[1].Hits[0].ID)
	assert.Empty(t, results[2].Hits)
}

func TestMultiSearchReportsUnavailableIndex(t *testing.T) {
	idx, err := Open(Options{})
	require.NoError(t, err)
	results := idx.MultiSearch(context.Background(), []MatchRequest{{Text: "a"}, {Text: "b"}})
	for _, r := range results {
		assert.True(t, errors.Is(r.Err, apperrors.ErrIndexUnavailable))
	}
}

func TestBulkLoadReportsFailuresWithoutAborting(t *testing.T) {
	idx, err := NewMemory("bulk", Mapping{})
	require.NoError(t, err)
	defer idx.Close()

	docs := make(chan corpus.Document, 5)
	docs <- corpus.Document{ID: "a", Body: "alpha"}
	docs <- corpus.Document{ID: "", Body: "nameless"}
	docs <- corpus.Document{ID: "b", Body: "beta"}
	docs <- corpus.Document{ID: "c", Body: "gamma"}
	close(docs)

	report, err := idx.BulkLoad(context.Background(), docs, BulkOptions{Workers: 2, QueueSize: 1, ChunkSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Indexed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "", report.Failures[0].ID)
	assert.NotEmpty(t, report.Failures[0].Reason)

	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestWeightFieldIsNotSearchable(t *testing.T) {
	idx, err := NewMemory("weights", Mapping{WithWeight: true})
	require.NoError(t, err)
	defer idx.Close()

	w := 3.0
	docs := corpus.Corpus{"Person": {ID: "Person", Body: "people", Weight: &w}}
	report, err := Populate(context.Background(), idx, docs, Mapping{WithWeight: true}, BulkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)

	ok, err := idx.HasTerm(context.Background(), "3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOnDiskResetAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexName("EC", "default"))
	idx, err := Open(Options{Path: path, Name: "ec_default"})
	require.NoError(t, err)

	_, err = Populate(context.Background(), idx, testCorpus(), Mapping{Analyzer: SuffixAnalyzer}, BulkOptions{})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	reopened, err := Open(Options{Path: path})
	require.NoError(t, err)
	defer reopened.Close()
	n, err := reopened.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	tokens, err := reopened.Analyze(context.Background(), "bands")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "band", tokens[0].Term, "reopened index keeps its analyzer")

	require.NoError(t, reopened.Reset(context.Background(), Mapping{}))
	n, err = reopened.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "tc_custom", IndexName("TC", "Custom"))
}
