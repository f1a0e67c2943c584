package instancetype

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/ontology"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/triple"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/vocabulary"
)

const (
	ont      = "http://dbpedia.org/ontology/"
	res      = "http://dbpedia.org/resource/"
	rdfType  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	owlThing = "http://www.w3.org/2002/07/owl#Thing"
)

func typed(entity, object string) triple.Triple {
	return triple.Triple{Subject: res + entity, Predicate: rdfType, Object: object}
}

func testOntology() *ontology.Graph {
	b := ontology.NewBuilder(vocabulary.Default())
	b.AddEdge("Actor", "Artist")
	b.AddEdge("Artist", "Person")
	b.AddEdge("Band", "Group")
	return b.Graph()
}

func TestBuildDirect(t *testing.T) {
	triples := []triple.Triple{
		typed("Tom_Hanks", ont+"Actor"),
		typed("Tom_Hanks", ont+"Actor"),
		typed("Tom_Hanks", owlThing),
		typed("Tom_Hanks", ont+"Wikidata:Q5"),
		typed("Tom_Hanks", "http://schema.org/Person"),
		typed("Queen_(band)", ont+"Band"),
		{Subject: res + "Queen_(band)", Predicate: rdfType, Object: ont + "Group", ObjectIsLiteral: true},
	}

	m, err := Build(context.Background(), vocabulary.Default(), triple.FromSlice(triples), nil, false)
	require.NoError(t, err)

	assert.Equal(t, Map{
		"Tom_Hanks":    {"Actor"},
		"Queen_(band)": {"Band"},
	}, m)
}

func TestBuildMergesSourcesByUnion(t *testing.T) {
	first := triple.FromSlice([]triple.Triple{typed("Oslo", ont+"City")})
	second := triple.FromSlice([]triple.Triple{typed("Oslo", ont+"Settlement"), typed("Oslo", ont+"City")})
	both := func(ctx context.Context, fn triple.Handler) error {
		if err := first(ctx, fn); err != nil {
			return err
		}
		return second(ctx, fn)
	}

	m, err := Build(context.Background(), vocabulary.Default(), both, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []TypeID{"City", "Settlement"}, m["Oslo"])
}

func TestBuildTransitive(t *testing.T) {
	triples := []triple.Triple{
		typed("Tom_Hanks", ont+"Actor"),
		typed("Queen_(band)", ont+"Band"),
		typed("Queen_(band)", ont+"Artist"),
	}

	m, err := Build(context.Background(), vocabulary.Default(), triple.FromSlice(triples), testOntology(), true)
	require.NoError(t, err)

	assert.Equal(t, []TypeID{"Actor", "Artist", "Person"}, m["Tom_Hanks"])
	assert.Equal(t, []TypeID{"Artist", "Band", "Group", "Person"}, m["Queen_(band)"])
}

func TestBuildTransitiveRequiresOntology(t *testing.T) {
	_, err := Build(context.Background(), vocabulary.Default(), triple.FromSlice(nil), nil, true)
	assert.Error(t, err)
}

func TestMapTypesLookup(t *testing.T) {
	m := Map{"Oslo": {"City"}}

	types, ok := m.Types("Oslo")
	assert.True(t, ok)
	assert.Equal(t, []TypeID{"City"}, types)

	_, ok = m.Types("Bergen")
	assert.False(t, ok)
}

func TestInvert(t *testing.T) {
	m := Map{
		"b": {"X", "Y"},
		"a": {"X"},
		"c": {},
	}
	inv := Invert(m)
	assert.Equal(t, TypeEntityMap{
		"X": {"a", "b"},
		"Y": {"b"},
	}, inv)
	assert.Equal(t, []TypeID{"X", "Y"}, inv.Types())
}

func TestBuildIsDeterministic(t *testing.T) {
	forward := []triple.Triple{
		typed("A", ont+"Actor"), typed("B", ont+"Band"), typed("A", ont+"Band"),
	}
	backward := []triple.Triple{forward[2], forward[1], forward[0]}

	m1, err := Build(context.Background(), vocabulary.Default(), triple.FromSlice(forward), testOntology(), true)
	require.NoError(t, err)
	m2, err := Build(context.Background(), vocabulary.Default(), triple.FromSlice(backward), testOntology(), true)
	require.NoError(t, err)

	b1, err := json.Marshal(m1)
	require.NoError(t, err)
	b2, err := json.Marshal(m2)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}

func TestWeights(t *testing.T) {
	w := ComputeWeights(Map{
		"e1": {"X"},
		"e2": {"X", "Y"},
	})

	n, ok := w.Lookup("X")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = w.Lookup("Y")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = w.Lookup("Z")
	assert.False(t, ok)
}
