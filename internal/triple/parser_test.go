package triple

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Triple
	}{
		{
			name: "uri object",
			line: "<http://dbpedia.org/ontology/Actor> <http://www.w3.org/2000/01/rdf-schema#subClassOf> <http://dbpedia.org/ontology/Artist> .",
			want: Triple{
				Subject:   "http://dbpedia.org/ontology/Actor",
				Predicate: "http://www.w3.org/2000/01/rdf-schema#subClassOf",
				Object:    "http://dbpedia.org/ontology/Artist",
			},
		},
		{
			name: "uri object without trailing dot",
			line: "<s> <p> <o>",
			want: Triple{Subject: "s", Predicate: "p", Object: "o"},
		},
		{
			name: "literal with language tag",
			line: `<http://dbpedia.org/resource/Oslo> <http://www.w3.org/2000/01/rdf-schema#comment> "Oslo is the capital of Norway."@en .`,
			want: Triple{
				Subject:         "http://dbpedia.org/resource/Oslo",
				Predicate:       "http://www.w3.org/2000/01/rdf-schema#comment",
				Object:          "Oslo is the capital of Norway.",
				ObjectIsLiteral: true,
			},
		},
		{
			name: "literal with datatype suffix",
			line: `<s> <p> "1984"^^<http://www.w3.org/2001/XMLSchema#gYear> .`,
			want: Triple{Subject: "s", Predicate: "p", Object: "1984", ObjectIsLiteral: true},
		},
		{
			name: "literal with embedded quotes",
			line: `<s> <p> "the "Big Apple" nickname"@en .`,
			want: Triple{Subject: "s", Predicate: "p", Object: `the "Big Apple" nickname`, ObjectIsLiteral: true},
		},
		{
			name: "empty literal",
			line: `<s> <p> "" .`,
			want: Triple{Subject: "s", Predicate: "p", Object: "", ObjectIsLiteral: true},
		},
		{
			name: "windows line ending",
			line: "<s> <p> <o> .\r\n",
			want: Triple{Subject: "s", Predicate: "p", Object: "o"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	lines := map[string]string{
		"no subject delimiter":   "s <p> <o> .",
		"no separator":           "<s>",
		"unclosed subject":       "<s <p> <o> .",
		"no predicate delimiter": "<s> p <o> .",
		"bare object":            "<s> <p> o .",
		"unterminated uri":       "<s> <p> <o .",
		"unterminated literal":   `<s> <p> "open .`,
		"comment":                "# started 2016-10-01",
	}
	for name, line := range lines {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrMalformedTriple))

			var mErr *MalformedTripleError
			require.True(t, errors.As(err, &mErr))
			assert.Equal(t, line, mErr.Text)
			assert.NotEmpty(t, mErr.Reason)
		})
	}
}
