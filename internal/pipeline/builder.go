// Package pipeline wires the build stages together. Every stage is memoized
// in the artifact cache under a deterministic key and can be forced to
// rebuild; dependencies of a forced stage are reused from the cache.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/instancetype"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/ontology"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/triple"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/vocabulary"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/tracing"
)

// Options tunes the expensive stages.
type Options struct {
	CorpusWorkers int
	// Progress, if set, receives type-document progress.
	Progress func(done, total int)
	Metrics  *metrics.Metrics
}

// Builder produces every pipeline artifact. It is built once per process and
// handed to whoever needs artifacts.
type Builder struct {
	data   config.DataConfig
	vocab  *vocabulary.Vocabulary
	cache  *artifact.Cache
	opts   Options
	logger *slog.Logger
}

// New returns a Builder reading raw sources described by data. A non-nil
// notifier is told about every rebuilt artifact.
func New(data config.DataConfig, vocab *vocabulary.Vocabulary, cache *artifact.Cache, notifier *events.Notifier, opts Options) *Builder {
	if notifier != nil {
		cache.OnRebuilt(notifier.ArtifactRebuilt)
	}
	return &Builder{
		data:   data,
		vocab:  vocab,
		cache:  cache,
		opts:   opts,
		logger: slog.Default().With("component", "pipeline"),
	}
}

func (b *Builder) Cache() *artifact.Cache { return b.cache }

func (b *Builder) Vocabulary() *vocabulary.Vocabulary { return b.vocab }

func (b *Builder) source(c config.SourceConfig) triple.Source {
	return triple.FromConfig(b.data.Resolve(c))
}

func (b *Builder) sources(cs []config.SourceConfig) []triple.Source {
	out := make([]triple.Source, len(cs))
	for i, c := range cs {
		out[i] = b.source(c)
	}
	return out
}

// stage memoizes build under key inside a tracing span.
func stage[T any](ctx context.Context, key string, force bool, c *artifact.Cache, build func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracing.Start(ctx, "pipeline."+artifact.Kind(key))
	span.SetAttr("key", key)
	span.SetAttr("force", force)
	v, err := artifact.Memoize(ctx, c, key, force, build)
	span.Finish(err)
	return v, err
}

// Ontology returns the closed type hierarchy.
func (b *Builder) Ontology(ctx context.Context, force bool) (*ontology.Graph, error) {
	return stage(ctx, artifact.Key("ontology"), force, b.cache, func(ctx context.Context) (*ontology.Graph, error) {
		return ontology.BuildFromSources(ctx, b.vocab, b.source(b.data.Ontology))
	})
}

// InstanceTypes returns the entity types, expanded with their ancestors
// when transitive is set.
func (b *Builder) InstanceTypes(ctx context.Context, transitive, force bool) (instancetype.Map, error) {
	key := artifact.Key("instance_types")
	if transitive {
		key = artifact.Key("instance_types", "all")
	}
	return stage(ctx, key, force, b.cache, func(ctx context.Context) (instancetype.Map, error) {
		srcs := b.sources(b.data.InstanceTypes)
		var ont *ontology.Graph
		if transitive {
			srcs = append(srcs, b.sources(b.data.TransitiveInstanceTypes)...)
			var err error
			if ont, err = b.Ontology(ctx, false); err != nil {
				return nil, err
			}
		}
		return instancetype.BuildFromSources(ctx, b.vocab, srcs, ont, transitive)
	})
}

// TypeEntities inverts the direct instance types.
func (b *Builder) TypeEntities(ctx context.Context, force bool) (instancetype.TypeEntityMap, error) {
	return stage(ctx, artifact.Key("type_entity"), force, b.cache, func(ctx context.Context) (instancetype.TypeEntityMap, error) {
		direct, err := b.InstanceTypes(ctx, false, false)
		if err != nil {
			return nil, err
		}
		return instancetype.Invert(direct), nil
	})
}

// TypeWeights counts the entities of every type over the transitive types.
func (b *Builder) TypeWeights(ctx context.Context, force bool) (instancetype.Weights, error) {
	return stage(ctx, artifact.Key("type_weights"), force, b.cache, func(ctx context.Context) (instancetype.Weights, error) {
		all, err := b.InstanceTypes(ctx, true, false)
		if err != nil {
			return nil, err
		}
		return instancetype.ComputeWeights(all), nil
	})
}

// EntityBodies merges the selected text sources into one body per typed
// entity. Every selected source must be readable.
func (b *Builder) EntityBodies(ctx context.Context, sel corpus.Selection, force bool) (map[string]string, error) {
	return stage(ctx, artifact.Key("document_bodies", string(sel)), force, b.cache, func(ctx context.Context) (map[string]string, error) {
		direct, err := b.InstanceTypes(ctx, false, false)
		if err != nil {
			return nil, err
		}
		texts := map[corpus.TextSource]config.SourceConfig{
			corpus.SourceLong:   b.data.LongAbstracts,
			corpus.SourceShort:  b.data.ShortAbstracts,
			corpus.SourceAnchor: b.data.AnchorText,
		}
		read := make(map[corpus.TextSource]map[string]string, len(texts))
		for _, name := range []corpus.TextSource{corpus.SourceLong, corpus.SourceShort, corpus.SourceAnchor} {
			if !sel.Includes(name) {
				continue
			}
			values, err := corpus.ReadSource(ctx, b.vocab, triple.FromSources(b.source(texts[name])))
			if err != nil {
				return nil, fmt.Errorf("reading %s text: %w", name, err)
			}
			b.logger.Info("text source read", "source", name, "entities", len(values))
			read[name] = values
		}
		bodies := corpus.BuildEntityBodies(direct.Entities(), read[corpus.SourceLong], read[corpus.SourceShort], read[corpus.SourceAnchor])
		b.logger.Info("entity bodies built", "selection", string(sel), "bodies", len(bodies))
		return bodies, nil
	})
}

// EntityDocuments wraps every entity body into a document.
func (b *Builder) EntityDocuments(ctx context.Context, sel corpus.Selection, force bool) (corpus.Corpus, error) {
	return stage(ctx, artifact.Key("document_EC", string(sel)), force, b.cache, func(ctx context.Context) (corpus.Corpus, error) {
		bodies, err := b.EntityBodies(ctx, sel, false)
		if err != nil {
			return nil, err
		}
		return corpus.BuildEntityDocuments(bodies), nil
	})
}

// TypeDocuments concatenates the entity bodies of every type. withWeights
// attaches the type weights used by the custom similarity.
func (b *Builder) TypeDocuments(ctx context.Context, sel corpus.Selection, withWeights, force bool) (corpus.Corpus, error) {
	key := artifact.Key("document_TC", string(sel))
	if withWeights {
		key = artifact.Key("document_TC", string(sel), "weighted")
	}
	return stage(ctx, key, force, b.cache, func(ctx context.Context) (corpus.Corpus, error) {
		bodies, err := b.EntityBodies(ctx, sel, false)
		if err != nil {
			return nil, err
		}
		typeEntities, err := b.TypeEntities(ctx, false)
		if err != nil {
			return nil, err
		}
		opts := corpus.TypeOptions{Workers: b.opts.CorpusWorkers, Progress: b.progress(key)}
		if withWeights {
			if opts.Weights, err = b.TypeWeights(ctx, false); err != nil {
				return nil, err
			}
		}
		return corpus.BuildTypeDocuments(ctx, typeEntities, bodies, opts)
	})
}

func (b *Builder) progress(key string) func(done, total int) {
	return func(done, total int) {
		if b.opts.Metrics != nil && total > 0 {
			b.opts.Metrics.CorpusProgress.WithLabelValues(artifact.Kind(key)).Set(float64(done) / float64(total))
		}
		if b.opts.Progress != nil {
			b.opts.Progress(done, total)
		}
	}
}
