package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/runstore"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/searchindex"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/vocabulary"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/sqlite"
)

// app holds the clients a command opened. close releases them in reverse
// order.
type app struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	redis    *pkgredis.Client
	producer *kafka.Producer
	builder  *pipeline.Builder
	closers  []func() error
}

// newApp opens the artifact store and, when Kafka is enabled, the rebuild
// event producer.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.Default()}

	var store artifact.Store
	switch cfg.Artifacts.Backend {
	case "redis":
		client, err := a.redisClient()
		if err != nil {
			return nil, fmt.Errorf("artifact store: %w", err)
		}
		store = artifact.NewRedisStore(client)
	default:
		fs, err := artifact.NewFileStore(cfg.Artifacts.Dir)
		if err != nil {
			return nil, err
		}
		store = fs
	}
	cache := artifact.NewCache(store, a.metrics)

	var notifier *events.Notifier
	if cfg.Kafka.Enabled {
		a.producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ArtifactsRebuilt)
		a.closers = append(a.closers, a.producer.Close)
		notifier = events.NewNotifier(a.producer)
	}

	a.builder = pipeline.New(cfg.Data, vocabulary.New(cfg.Vocabulary), cache, notifier, pipeline.Options{
		CorpusWorkers: cfg.Search.CorpusWorkers,
		Metrics:       a.metrics,
	})
	return a, nil
}

// redisClient connects on first use.
func (a *app) redisClient() (*pkgredis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client, err := pkgredis.NewClient(a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

// openIndex opens the on-disk index of mode and similarity. It stays
// unavailable until populated.
func (a *app) openIndex(mode retrieval.Mode, sim retrieval.Similarity) (*searchindex.BleveIndex, error) {
	name := searchindex.IndexName(mode.String(), sim.String())
	idx, err := searchindex.Open(searchindex.Options{
		Path:         filepath.Join(a.cfg.Search.IndexDir, name),
		Name:         name,
		QueryTimeout: a.cfg.Search.QueryTimeout,
		Concurrency:  a.cfg.Search.QueryConcurrency,
		Metrics:      a.metrics,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, idx.Close)
	return idx, nil
}

func (a *app) scorer(ctx context.Context, mode retrieval.Mode, sim retrieval.Similarity, k int) (*retrieval.Scorer, *searchindex.BleveIndex, error) {
	idx, err := a.openIndex(mode, sim)
	if err != nil {
		return nil, nil, err
	}
	strategy, err := a.builder.Strategy(ctx, mode, idx)
	if err != nil {
		return nil, nil, err
	}
	if k <= 0 {
		k = a.cfg.Search.TopK
	}
	return retrieval.NewScorer(strategy, a.builder.Cache(), retrieval.ScorerOptions{
		K:          k,
		Similarity: sim,
		Datasets:   a.cfg.Data.Datasets,
		DatasetDir: a.cfg.Data.Dir,
	}), idx, nil
}

// runStore opens the configured prediction run store. It returns nil when
// runs are not stored.
func (a *app) runStore(ctx context.Context) (runstore.Store, error) {
	var store *runstore.SQLStore
	switch a.cfg.Runs.Backend {
	case "postgres":
		client, err := postgres.New(a.cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		store = runstore.NewPostgresStore(client)
	case "sqlite":
		client, err := sqlite.New(a.cfg.SQLite)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		store = runstore.NewSQLiteStore(client)
	default:
		return nil, nil
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("closing resource", "error", err)
		}
	}
}

// modeFlags are shared by every command that touches an index.
type modeFlags struct {
	mode       string
	similarity string
	source     string
}

func (f *modeFlags) parse() (retrieval.Mode, retrieval.Similarity, corpus.Selection, error) {
	mode, err := retrieval.ParseMode(f.mode)
	if err != nil {
		return 0, 0, "", err
	}
	sim, err := retrieval.ParseSimilarity(f.similarity)
	if err != nil {
		return 0, 0, "", err
	}
	sel, err := corpus.ParseSelection(f.source)
	if err != nil {
		return 0, 0, "", err
	}
	return mode, sim, sel, nil
}

// withDefaults fills unset flags from the search config.
func (f *modeFlags) withDefaults(c config.SearchConfig) *modeFlags {
	if f.mode == "" {
		f.mode = c.Mode
	}
	if f.similarity == "" {
		f.similarity = c.Similarity
	}
	if f.source == "" {
		f.source = c.BodySource
	}
	return f
}
