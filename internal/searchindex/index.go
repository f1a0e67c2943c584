// Package searchindex is the boundary to the full-text engine. The Index
// contract covers index lifecycle, bulk loading, query analysis and single or
// batched ranked match queries; BleveIndex implements it on bleve.
package searchindex

import (
	"context"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
)

const (
	BodyField   = "body"
	WeightField = "weight"
)

// Mapping describes the fields of a freshly created index.
type Mapping struct {
	// Analyzer names the analyzer of the body field: EnglishAnalyzer or
	// SuffixAnalyzer.
	Analyzer string
	// WithWeight adds an unindexed, stored numeric weight field.
	WithWeight bool
}

// Token is one analyzer output term.
type Token struct {
	Term     string `json:"term"`
	Position int    `json:"position"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// MatchRequest is a free-text match against the body field.
type MatchRequest struct {
	Text string
	Size int
}

// ScoredHit is one ranked search result.
type ScoredHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// MultiResult is the outcome of one element of a MultiSearch call.
type MultiResult struct {
	Hits []ScoredHit
	Err  error
}

// BulkOptions bounds the bulk loader.
type BulkOptions struct {
	Workers   int
	QueueSize int
	ChunkSize int
}

// BulkFailure is a document the engine rejected.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkReport summarises a bulk load.
type BulkReport struct {
	Indexed  int           `json:"indexed"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

// Index is the search engine contract.
type Index interface {
	// Reset drops the index if present and recreates it empty with m.
	Reset(ctx context.Context, m Mapping) error
	// BulkLoad indexes every document received on docs. Rejected documents
	// are reported, never retried, and do not stop the others.
	BulkLoad(ctx context.Context, docs <-chan corpus.Document, opts BulkOptions) (BulkReport, error)
	Analyze(ctx context.Context, text string) ([]Token, error)
	// HasTerm reports whether any document holds the analyzed term.
	HasTerm(ctx context.Context, term string) (bool, error)
	Search(ctx context.Context, req MatchRequest) ([]ScoredHit, error)
	// MultiSearch runs a batch of requests. Each element succeeds or fails
	// on its own.
	MultiSearch(ctx context.Context, reqs []MatchRequest) []MultiResult
	DocCount() (uint64, error)
	Close() error
}

// IndexName derives the on-disk index name for a retrieval mode and
// similarity, such as "ec_default".
func IndexName(mode, similarity string) string {
	return strings.ToLower(mode + "_" + similarity)
}
