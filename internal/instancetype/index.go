// Package instancetype maps entities to their ontology types and back.
package instancetype

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/ontology"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/triple"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/vocabulary"
)

type TypeID = vocabulary.TypeID

// Map is entity -> sorted, deduplicated types.
type Map map[string][]TypeID

// Types returns the types of entity and whether the entity is known.
func (m Map) Types(entity string) ([]TypeID, bool) {
	types, ok := m[entity]
	return types, ok
}

// Entities returns every entity, sorted.
func (m Map) Entities() []string {
	out := make([]string, 0, len(m))
	for e := range m {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// TypeEntityMap is type -> sorted entities.
type TypeEntityMap map[TypeID][]string

// Types returns every type, sorted.
func (m TypeEntityMap) Types() []TypeID {
	out := make([]TypeID, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Build merges the entity/type assertions yielded by it. Only objects in the
// ontology namespace are kept; excluded classes and the root never appear.
// With transitive set every direct type is expanded with its ancestors from
// ont, which is then required.
func Build(ctx context.Context, vocab *vocabulary.Vocabulary, it triple.Iterator, ont *ontology.Graph, transitive bool) (Map, error) {
	if transitive && ont == nil {
		return nil, fmt.Errorf("transitive instance types need an ontology")
	}
	log := slog.Default().With("component", "instancetype")

	m := make(Map)
	asserted := 0
	err := it(ctx, func(t triple.Triple) error {
		if t.ObjectIsLiteral || !vocab.IsOntologyType(t.Object) || vocab.IsExcluded(t.Object) {
			return nil
		}
		typ := vocab.ResolveType(t.Object)
		if typ == "" || vocab.IsRoot(typ) {
			return nil
		}
		entity := vocab.ResolveEntity(t.Subject)
		if entity == "" {
			return nil
		}
		m[entity] = append(m[entity], typ)
		asserted++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building instance types: %w", err)
	}

	for entity, types := range m {
		if transitive {
			direct := len(types)
			for i := 0; i < direct; i++ {
				types = append(types, ont.Ancestors(types[i])...)
			}
		}
		m[entity] = dedupe(types, vocab)
	}

	log.Info("instance types built",
		"entities", len(m),
		"assertions", asserted,
		"transitive", transitive,
	)
	return m, nil
}

// BuildFromSources is Build over triple files, merged by union.
func BuildFromSources(ctx context.Context, vocab *vocabulary.Vocabulary, srcs []triple.Source, ont *ontology.Graph, transitive bool) (Map, error) {
	return Build(ctx, vocab, triple.FromSources(srcs...), ont, transitive)
}

func dedupe(types []TypeID, vocab *vocabulary.Vocabulary) []TypeID {
	sort.Strings(types)
	out := types[:0]
	for i, t := range types {
		if i > 0 && t == types[i-1] {
			continue
		}
		if vocab.IsRoot(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Invert builds the type -> entities relation. Entities without types
// contribute nothing.
func Invert(m Map) TypeEntityMap {
	out := make(TypeEntityMap)
	for entity, types := range m {
		for _, t := range types {
			out[t] = append(out[t], entity)
		}
	}
	for t := range out {
		sort.Strings(out[t])
	}
	return out
}
