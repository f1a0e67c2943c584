package server

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/searchindex"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/resilience"
)

const keyPrefix = "predict:"

// KV is the subset of the Redis client the prediction cache uses.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

var _ KV = (*pkgredis.Client)(nil)

// PredictionCache keeps the ranked types of single questions in Redis. The
// cache degrades to a pass-through while Redis is failing: a circuit breaker
// stops calls after repeated errors.
type PredictionCache struct {
	kv      KV
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewPredictionCache wraps kv. m may be nil.
func NewPredictionCache(kv KV, ttl time.Duration, m *metrics.Metrics) *PredictionCache {
	cfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && !pkgredis.IsNilError(err) && !errors.Is(err, context.Canceled)
		},
	}
	if m != nil {
		cfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &PredictionCache{
		kv:      kv,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("prediction-cache", cfg),
		metrics: m,
		logger:  slog.Default().With("component", "prediction-cache"),
	}
}

// Key derives the cache key of q for mode and k. Questions are compared
// case-insensitively with collapsed whitespace.
func Key(mode retrieval.Mode, k int, q retrieval.Query) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(q.Question)), " ")
	raw := fmt.Sprintf("%s|k=%d|%s|%s", mode, k, q.Category, normalized)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func (c *PredictionCache) count(result string) {
	if result == "hit" {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.metrics != nil {
		c.metrics.PredictionCacheTotal.WithLabelValues(result).Inc()
	}
}

// Get returns the cached ranking of key. A cached nil ranking means the
// question had no answer and is still a hit.
func (c *PredictionCache) Get(ctx context.Context, key string) ([]searchindex.ScoredHit, bool) {
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.kv.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) && !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.count("miss")
		return nil, false
	}
	if data == nil {
		c.count("miss")
		return nil, false
	}
	var hits []searchindex.ScoredHit
	if err := json.Unmarshal(data, &hits); err != nil {
		c.logger.Warn("cache entry corrupt", "key", key, "error", err)
		c.count("miss")
		return nil, false
	}
	c.count("hit")
	return hits, true
}

// Set stores hits under key. Failures are logged and otherwise ignored.
func (c *PredictionCache) Set(ctx context.Context, key string, hits []searchindex.ScoredHit) {
	data, err := json.Marshal(hits)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.kv.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached prediction. prefix narrows the hashed key
// space and is normally empty.
func (c *PredictionCache) Invalidate(ctx context.Context, prefix string) (int, error) {
	deleted, err := c.kv.FlushByPattern(ctx, keyPrefix+prefix+"*")
	if err != nil {
		return int(deleted), fmt.Errorf("invalidating prediction cache: %w", err)
	}
	c.logger.Info("prediction cache invalidated", "keys_deleted", deleted)
	return int(deleted), nil
}

// flight is what one compute over a set of misses yields, keyed by cache
// key so callers with other query IDs can share it.
type flight struct {
	hits   map[string][]searchindex.ScoredHit
	failed map[string]bool
}

// Resolve answers queries from the cache and runs compute once over the
// misses. Concurrent calls with the same set of misses share one compute.
// Questions compute leaves unanswered are cached as unanswered; questions it
// reports as failed are not cached and come back in Outcome.Failed.
func (c *PredictionCache) Resolve(ctx context.Context, mode retrieval.Mode, k int, queries []retrieval.Query, compute func([]retrieval.Query) (retrieval.Outcome, error)) (retrieval.Outcome, int, error) {
	out := retrieval.Outcome{Results: make(retrieval.Results, len(queries))}
	keys := make(map[string]string, len(queries))
	var missing []retrieval.Query
	for _, q := range queries {
		key := Key(mode, k, q)
		keys[q.ID] = key
		hits, ok := c.Get(ctx, key)
		if !ok {
			missing = append(missing, q)
			continue
		}
		if hits != nil {
			out.Results[q.ID] = hits
		}
	}
	cached := len(queries) - len(missing)
	if len(missing) == 0 {
		return out, cached, nil
	}

	group := make([]string, len(missing))
	for i, q := range missing {
		group[i] = keys[q.ID]
	}
	sort.Strings(group)
	v, err, _ := c.group.Do(strings.Join(group, ","), func() (interface{}, error) {
		computed, err := compute(missing)
		if err != nil {
			return nil, err
		}
		failed := make(map[string]bool, len(computed.Failed))
		for _, id := range computed.Failed {
			failed[id] = true
		}
		f := flight{
			hits:   make(map[string][]searchindex.ScoredHit, len(missing)),
			failed: make(map[string]bool, len(failed)),
		}
		for _, q := range missing {
			key := keys[q.ID]
			if failed[q.ID] {
				f.failed[key] = true
				continue
			}
			hits := computed.Results[q.ID]
			c.Set(ctx, key, hits)
			if hits != nil {
				f.hits[key] = hits
			}
		}
		return f, nil
	})
	if err != nil {
		return retrieval.Outcome{}, cached, err
	}
	f := v.(flight)
	for _, q := range missing {
		key := keys[q.ID]
		if f.failed[key] {
			out.Failed = append(out.Failed, q.ID)
			continue
		}
		if hits, ok := f.hits[key]; ok {
			out.Results[q.ID] = hits
		}
	}
	return out, cached, nil
}

func (c *PredictionCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *PredictionCache) State() resilience.State {
	return c.breaker.GetState()
}
