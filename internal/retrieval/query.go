// Package retrieval turns questions into ranked answer types, either by
// aggregating entity hits into their types or by matching type documents
// directly.
package retrieval

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/searchindex"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/vocabulary"
	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

type TypeID = vocabulary.TypeID

// Category is the coarse answer category assigned by the classifier.
type Category string

const (
	CategoryResource Category = "resource"
	CategoryString   Category = "string"
	CategoryNumber   Category = "number"
	CategoryDate     Category = "date"
	CategoryBoolean  Category = "boolean"
)

// Query is one evaluation or API question. Type holds the gold answer types
// when known.
type Query struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Category Category `json:"category"`
	Type     []TypeID `json:"type,omitempty"`
}

// Results maps a query ID to its ranked hits, best first.
type Results map[string][]searchindex.ScoredHit

// Outcome is the result of retrieving a batch of queries. Queries whose
// analysis or search failed are listed in Failed. Neither they nor queries
// without indexed terms appear in Results; only the former may succeed when
// asked again.
type Outcome struct {
	Results Results
	Failed  []string
}

// LoadQueries reads a JSON array of queries from path. Queries without a
// question are skipped.
func LoadQueries(path string) ([]Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: dataset %s", apperrors.ErrSourceUnavailable, path)
		}
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	var raw []Query
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding dataset %s: %v", apperrors.ErrInvalidInput, path, err)
	}
	return Clean(raw), nil
}

// Clean drops queries with an empty question.
func Clean(queries []Query) []Query {
	out := make([]Query, 0, len(queries))
	for _, q := range queries {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Resource keeps the queries that expect a resource answer.
func Resource(queries []Query) []Query {
	out := make([]Query, 0, len(queries))
	for _, q := range queries {
		if q.Category == CategoryResource {
			out = append(out, q)
		}
	}
	return out
}
