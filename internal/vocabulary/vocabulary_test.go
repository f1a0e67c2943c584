package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveType(t *testing.T) {
	v := Default()
	assert.Equal(t, "Sports team", v.ResolveType("http://dbpedia.org/ontology/Sports_team"))
	assert.Equal(t, "owl#Thing", v.ResolveType("http://www.w3.org/2002/07/owl#Thing"))
	assert.Equal(t, "plain", v.ResolveType("plain"))
}

func TestResolveEntity(t *testing.T) {
	v := Default()
	assert.Equal(t, "Tom_Hanks", v.ResolveEntity("http://dbpedia.org/resource/Tom_Hanks"))
	assert.Equal(t, "AC/DC", v.ResolveEntity("http://dbpedia.org/resource/AC/DC"), "resource names keep inner slashes")
	assert.Equal(t, "Tom Hanks", v.ResolveEntity("http://example.org/people/Tom_Hanks"))
}

func TestClassification(t *testing.T) {
	v := Default()
	assert.Equal(t, "owl#Thing", v.Root())
	assert.True(t, v.IsRoot("owl#Thing"))
	assert.True(t, v.IsRoot("http://www.w3.org/2002/07/owl#Thing"))
	assert.False(t, v.IsRoot(""))
	assert.False(t, v.IsRoot("Person"))

	assert.True(t, v.IsOntologyType("http://dbpedia.org/ontology/Person"))
	assert.False(t, v.IsOntologyType("http://schema.org/Person"))

	assert.True(t, v.IsExcluded("http://dbpedia.org/ontology/Wikidata:Q5"))
	assert.False(t, v.IsExcluded("http://dbpedia.org/ontology/Person"))
}

func TestEmptyVocabularyHasNoRoot(t *testing.T) {
	v := &Vocabulary{}
	assert.False(t, v.IsRoot("owl#Thing"))
	assert.Empty(t, v.Root())
}
