package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/instancetype"
)

// Document is one unit of the search corpus. Weight is only set for type
// documents indexed for the custom similarity.
type Document struct {
	ID     string   `json:"-"`
	Body   string   `json:"body"`
	Weight *float64 `json:"weight,omitempty"`
}

// Corpus maps document IDs to documents.
type Corpus map[string]Document

// IDs returns the document IDs in sorted order.
func (c Corpus) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UnmarshalJSON restores the IDs, which are only stored as map keys.
func (c *Corpus) UnmarshalJSON(data []byte) error {
	var raw map[string]Document
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for id, doc := range raw {
		doc.ID = id
		raw[id] = doc
	}
	*c = raw
	return nil
}

// BuildEntityDocuments wraps each entity body into a document.
func BuildEntityDocuments(bodies map[string]string) Corpus {
	docs := make(Corpus, len(bodies))
	for entity, body := range bodies {
		docs[entity] = Document{ID: entity, Body: body}
	}
	return docs
}

// TypeOptions tunes BuildTypeDocuments.
type TypeOptions struct {
	// Workers bounds the number of type buckets built concurrently.
	Workers int
	// Weights, when non-nil, attaches a weight to every type document.
	// Types without an entry get instancetype.DefaultTypeWeight.
	Weights instancetype.Weights
	// Progress is called each time another tenth of the types is done. It
	// may be called from several goroutines.
	Progress func(done, total int)
}

// BuildTypeDocuments concatenates, for every type, the bodies of its entities
// in entity order. Entities without a body add nothing, so bodies never hold
// doubled or trailing separators.
func BuildTypeDocuments(ctx context.Context, typeEntities instancetype.TypeEntityMap, bodies map[string]string, opts TypeOptions) (Corpus, error) {
	log := slog.Default().With("component", "corpus")
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	types := typeEntities.Types()
	total := len(types)
	step := total / 10
	if step == 0 {
		step = 1
	}

	docs := make(Corpus, total)
	var mu sync.Mutex
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range types {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc := Document{ID: t, Body: joinBodies(typeEntities[t], bodies)}
			if opts.Weights != nil {
				w, ok := opts.Weights.Lookup(t)
				if !ok {
					w = instancetype.DefaultTypeWeight
				}
				weight := float64(w)
				doc.Weight = &weight
			}

			mu.Lock()
			docs[t] = doc
			mu.Unlock()

			n := int(done.Add(1))
			if n%step == 0 || n == total {
				log.Info("type documents progress",
					"done", n,
					"total", total,
					"percent", n*100/total,
				)
				if opts.Progress != nil {
					opts.Progress(n, total)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building type documents: %w", err)
	}
	return docs, nil
}

func joinBodies(entities []string, bodies map[string]string) string {
	var b strings.Builder
	for _, e := range entities {
		body := bodies[e]
		if body == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(body)
	}
	return b.String()
}
