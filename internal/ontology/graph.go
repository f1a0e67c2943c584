// Package ontology builds the class hierarchy of the knowledge graph from
// subClassOf triples and answers transitive ancestor queries.
//
// Types live in an index-based arena. Once loading finishes the closure of
// every node is computed in a single iterative strongly-connected-component
// pass, so ancestor lookups are O(1) and cyclic hierarchies terminate.
package ontology

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/triple"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/vocabulary"
)

type TypeID = vocabulary.TypeID

// Node is the persisted form of one type.
type Node struct {
	Parents      []TypeID `json:"parents"`
	Ancestors    []TypeID `json:"ancestors"`
	NumAncestors int      `json:"num_ancestors"`
}

// Graph is an immutable, fully closed type hierarchy.
type Graph struct {
	index   map[TypeID]int
	names   []TypeID
	parents [][]int
	// closure[i] is shared by every member of node i's component.
	closure [][]TypeID
}

// Builder accumulates subClassOf edges.
type Builder struct {
	vocab   *vocabulary.Vocabulary
	index   map[TypeID]int
	names   []TypeID
	parents [][]int
	edges   map[[2]int]struct{}
}

func NewBuilder(vocab *vocabulary.Vocabulary) *Builder {
	return &Builder{
		vocab: vocab,
		index: make(map[TypeID]int),
		edges: make(map[[2]int]struct{}),
	}
}

// Add records t when it is a subClassOf statement whose object is an
// ontology class or the root. It reports whether the triple was kept.
func (b *Builder) Add(t triple.Triple) bool {
	if t.Predicate != b.vocab.SubClassOf || t.ObjectIsLiteral {
		return false
	}
	toRoot := b.vocab.IsRoot(t.Object)
	if !toRoot && !b.vocab.IsOntologyType(t.Object) {
		return false
	}
	child := b.vocab.ResolveType(t.Subject)
	if child == "" || b.vocab.IsRoot(child) {
		return false
	}
	parent := b.vocab.ResolveType(t.Object)
	if toRoot || b.vocab.IsRoot(parent) || parent == "" {
		b.node(child)
		return true
	}
	b.AddEdge(child, parent)
	return true
}

// AddEdge declares parent as a direct superclass of child.
func (b *Builder) AddEdge(child, parent TypeID) {
	c, p := b.node(child), b.node(parent)
	key := [2]int{c, p}
	if _, dup := b.edges[key]; dup {
		return
	}
	b.edges[key] = struct{}{}
	b.parents[c] = append(b.parents[c], p)
}

func (b *Builder) node(name TypeID) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	i := len(b.names)
	b.index[name] = i
	b.names = append(b.names, name)
	b.parents = append(b.parents, nil)
	return i
}

// Graph closes the hierarchy. The builder must not be used afterwards.
func (b *Builder) Graph() *Graph {
	return newGraph(b.index, b.names, b.parents)
}

// Build reads every triple of it and returns the closed hierarchy.
func Build(ctx context.Context, vocab *vocabulary.Vocabulary, it triple.Iterator) (*Graph, error) {
	b := NewBuilder(vocab)
	kept := 0
	err := it(ctx, func(t triple.Triple) error {
		if b.Add(t) {
			kept++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building ontology: %w", err)
	}
	g := b.Graph()
	slog.Default().With("component", "ontology").Info("ontology built",
		"types", g.Len(),
		"edges", len(b.edges),
		"triples_kept", kept,
	)
	return g, nil
}

// BuildFromSources is Build over triple files.
func BuildFromSources(ctx context.Context, vocab *vocabulary.Vocabulary, srcs ...triple.Source) (*Graph, error) {
	return Build(ctx, vocab, triple.FromSources(srcs...))
}

func newGraph(index map[TypeID]int, names []TypeID, parents [][]int) *Graph {
	return &Graph{
		index:   index,
		names:   names,
		parents: parents,
		closure: closeHierarchy(parents, names),
	}
}

// Ancestors returns every type reachable from t through parent edges, sorted.
// t itself is included only when it lies on a cycle. Unknown types have no
// ancestors. The returned slice is shared and must not be modified.
func (g *Graph) Ancestors(t TypeID) []TypeID {
	i, ok := g.index[t]
	if !ok {
		return nil
	}
	return g.closure[i]
}

// Parents returns the direct superclasses of t, sorted.
func (g *Graph) Parents(t TypeID) []TypeID {
	i, ok := g.index[t]
	if !ok {
		return nil
	}
	out := make([]TypeID, len(g.parents[i]))
	for j, p := range g.parents[i] {
		out[j] = g.names[p]
	}
	sort.Strings(out)
	return out
}

// Node returns the persisted view of t.
func (g *Graph) Node(t TypeID) (Node, bool) {
	if _, ok := g.index[t]; !ok {
		return Node{}, false
	}
	anc := g.Ancestors(t)
	return Node{
		Parents:      g.Parents(t),
		Ancestors:    append([]TypeID{}, anc...),
		NumAncestors: len(anc),
	}, true
}

// Contains reports whether t is a known type.
func (g *Graph) Contains(t TypeID) bool {
	_, ok := g.index[t]
	return ok
}

// Types returns every known type, sorted.
func (g *Graph) Types() []TypeID {
	out := append([]TypeID(nil), g.names...)
	sort.Strings(out)
	return out
}

func (g *Graph) Len() int {
	return len(g.names)
}

// MarshalJSON encodes the graph as {type: {parents, ancestors, num_ancestors}}.
// Keys and arrays are sorted so equal graphs encode to equal bytes.
func (g *Graph) MarshalJSON() ([]byte, error) {
	nodes := make(map[TypeID]Node, len(g.names))
	for _, name := range g.names {
		n, _ := g.Node(name)
		nodes[name] = n
	}
	return json.Marshal(nodes)
}

// UnmarshalJSON restores a graph from its persisted form. Only the parent
// lists are trusted; the closure is recomputed.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var nodes map[TypeID]Node
	if err := json.Unmarshal(data, &nodes); err != nil {
		return fmt.Errorf("decoding ontology: %w", err)
	}
	names := make([]TypeID, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	b := &Builder{
		index: make(map[TypeID]int, len(nodes)),
		edges: make(map[[2]int]struct{}),
	}
	for _, name := range names {
		b.node(name)
	}
	for _, name := range names {
		for _, p := range nodes[name].Parents {
			b.AddEdge(name, p)
		}
	}
	*g = *newGraph(b.index, b.names, b.parents)
	return nil
}
