// Package vocabulary resolves knowledge-graph URIs into the short type and
// entity identifiers used by every artifact. The same rules apply when the
// ontology is built and when instance types are read, so the two always agree
// on names.
package vocabulary

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/config"
)

// TypeID is a short ontology class name such as "Person" or "Sports team".
type TypeID = string

// Vocabulary holds the namespaces and predicates of one dump version.
type Vocabulary struct {
	OntologyNamespace string
	ResourceNamespace string
	SubClassOf        string
	RootURI           string
	ExcludedMarkers   []string

	root TypeID
}

// New builds a Vocabulary from configuration.
func New(cfg config.VocabularyConfig) *Vocabulary {
	v := &Vocabulary{
		OntologyNamespace: cfg.OntologyNamespace,
		ResourceNamespace: cfg.ResourceNamespace,
		SubClassOf:        cfg.SubClassOf,
		RootURI:           cfg.RootURI,
		ExcludedMarkers:   append([]string(nil), cfg.ExcludedMarkers...),
	}
	if v.RootURI != "" {
		v.root = ResolveLocal(v.RootURI)
	}
	return v
}

// Default returns the DBpedia vocabulary.
func Default() *Vocabulary {
	return New(config.Default().Vocabulary)
}

// Root is the resolved name of the universal root class ("owl#Thing").
func (v *Vocabulary) Root() TypeID {
	return v.root
}

// IsRoot reports whether t (a resolved type or a full URI) is the root.
func (v *Vocabulary) IsRoot(t string) bool {
	if t == "" {
		return false
	}
	return t == v.root || t == v.RootURI
}

// IsOntologyType reports whether uri names a class of the ontology namespace.
func (v *Vocabulary) IsOntologyType(uri string) bool {
	return strings.HasPrefix(uri, v.OntologyNamespace)
}

// IsExcluded reports whether uri carries one of the excluded markers, such as
// the Wikidata mirror classes living under the ontology namespace.
func (v *Vocabulary) IsExcluded(uri string) bool {
	for _, marker := range v.ExcludedMarkers {
		if marker != "" && strings.Contains(uri, marker) {
			return true
		}
	}
	return false
}

// ResolveType maps an ontology URI to its TypeID.
func (v *Vocabulary) ResolveType(uri string) TypeID {
	return ResolveLocal(uri)
}

// ResolveEntity maps a subject URI to an entity name. Resource URIs keep
// their underscores so the name matches the source dump; anything else falls
// back to the generic local-name rule.
func (v *Vocabulary) ResolveEntity(uri string) string {
	if v.ResourceNamespace != "" && strings.HasPrefix(uri, v.ResourceNamespace) {
		return uri[len(v.ResourceNamespace):]
	}
	return ResolveLocal(uri)
}

// ResolveLocal returns the last path segment of uri with underscores turned
// into spaces.
func ResolveLocal(uri string) string {
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		uri = uri[i+1:]
	}
	return strings.ReplaceAll(uri, "_", " ")
}
