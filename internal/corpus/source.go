// Package corpus assembles the text bodies indexed for retrieval: one
// document per entity (EC) and one per ontology type (TC).
package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/triple"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/vocabulary"
	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

// TextSource names one raw text dump.
type TextSource string

const (
	SourceLong   TextSource = "long"
	SourceShort  TextSource = "short"
	SourceAnchor TextSource = "anchor"
)

// Selection restricts which text sources feed the bodies. The zero value
// selects all of them.
type Selection string

const SelectAll Selection = ""

// ParseSelection accepts "", "all", "long", "short" or "anchor".
func ParseSelection(s string) (Selection, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return SelectAll, nil
	case string(SourceLong), string(SourceShort), string(SourceAnchor):
		return Selection(strings.ToLower(s)), nil
	}
	return "", fmt.Errorf("%w: unknown body source %q", apperrors.ErrInvalidInput, s)
}

// Includes reports whether src contributes to bodies built for s.
func (s Selection) Includes(src TextSource) bool {
	return s == SelectAll || TextSource(s) == src
}

// Suffix is appended to artifact names: "_short" for a single source, empty
// for all sources.
func (s Selection) Suffix() string {
	if s == SelectAll {
		return ""
	}
	return "_" + string(s)
}

// ReadSource collects, per entity, the distinct literal values yielded by it
// in first-seen order and joins them with single spaces.
func ReadSource(ctx context.Context, vocab *vocabulary.Vocabulary, it triple.Iterator) (map[string]string, error) {
	values := make(map[string][]string)
	err := it(ctx, func(t triple.Triple) error {
		if !t.ObjectIsLiteral || t.Object == "" {
			return nil
		}
		entity := vocab.ResolveEntity(t.Subject)
		if entity == "" {
			return nil
		}
		for _, v := range values[entity] {
			if v == t.Object {
				return nil
			}
		}
		values[entity] = append(values[entity], t.Object)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading text source: %w", err)
	}

	out := make(map[string]string, len(values))
	for entity, vs := range values {
		out[entity] = strings.Join(vs, " ")
	}
	return out, nil
}

// BuildEntityBodies merges the text sources per entity: the long body when
// present, otherwise the short one, followed by the anchor text. Entities are
// taken from universe when it is non-nil, otherwise from the union of the
// sources. Entities with no text at all get no body.
func BuildEntityBodies(universe []string, long, short, anchor map[string]string) map[string]string {
	if universe == nil {
		universe = unionKeys(long, short, anchor)
	}
	bodies := make(map[string]string)
	for _, entity := range universe {
		body, ok := long[entity]
		if !ok {
			body, ok = short[entity]
		}
		if a, found := anchor[entity]; found {
			if body != "" && a != "" {
				body += " " + a
			} else {
				body += a
			}
			ok = true
		}
		if ok {
			bodies[entity] = body
		}
	}
	return bodies
}

func unionKeys(maps ...map[string]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range maps {
		for k := range m {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
