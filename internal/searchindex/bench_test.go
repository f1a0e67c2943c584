package searchindex

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
)

var sampleAbstracts = map[string]string{
	"short": "Queen were a British rock band formed in London in 1970",
	"long": strings.Repeat(`The Rolling Stones are an English rock band formed in London in 1962.
        Diverging from the popular pop rock of the early 1960s, the Rolling Stones
        pioneered the gritty, rhythmically driven sound that came to define hard rock. `, 20),
}

func BenchmarkSuffixAnalyzer(b *testing.B) {
	for name, text := range sampleAbstracts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				stream := stopStemFilter{}.Filter(wordTokenizer{}.Tokenize([]byte(text)))
				_ = stream
			}
		})
	}
}

func benchCorpus(n int) corpus.Corpus {
	bodies := make(map[string]string, n)
	for i := 0; i < n; i++ {
		bodies[fmt.Sprintf("Entity_%d", i)] = fmt.Sprintf("entity %d is a band from city %d formed in year %d", i, i%50, 1950+i%70)
	}
	return corpus.BuildEntityDocuments(bodies)
}

func BenchmarkPopulate(b *testing.B) {
	for _, n := range []int{100, 1000} {
		docs := benchCorpus(n)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				idx, err := Open(Options{Name: "bench"})
				if err != nil {
					b.Fatal(err)
				}
				if _, err := Populate(context.Background(), idx, docs, Mapping{}, BulkOptions{Workers: 4, ChunkSize: 250}); err != nil {
					b.Fatal(err)
				}
				idx.Close()
			}
		})
	}
}

func BenchmarkMultiSearch(b *testing.B) {
	idx, err := NewMemory("bench", Mapping{})
	if err != nil {
		b.Fatal(err)
	}
	defer idx.Close()
	if _, err := Populate(context.Background(), idx, benchCorpus(2000), Mapping{}, BulkOptions{}); err != nil {
		b.Fatal(err)
	}

	reqs := make([]MatchRequest, 32)
	for i := range reqs {
		reqs[i] = MatchRequest{Text: fmt.Sprintf("band from city %d", i), Size: 100}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.MultiSearch(context.Background(), reqs)
	}
}
