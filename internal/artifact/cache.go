package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/metrics"
)

// RebuildHook is told about every artifact written after a rebuild.
type RebuildHook func(ctx context.Context, key string, builtAt time.Time)

// Cache memoizes artifact construction on top of a Store. Identical builds
// running concurrently are collapsed into one.
type Cache struct {
	store     Store
	group     singleflight.Group
	metrics   *metrics.Metrics
	logger    *slog.Logger
	onRebuilt RebuildHook

	hits     atomic.Int64
	misses   atomic.Int64
	rebuilds atomic.Int64
}

// NewCache wraps store. m may be nil.
func NewCache(store Store, m *metrics.Metrics) *Cache {
	return &Cache{
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "artifact-cache"),
	}
}

// OnRebuilt registers hook. It must be set before the cache is shared.
func (c *Cache) OnRebuilt(hook RebuildHook) {
	c.onRebuilt = hook
}

func (c *Cache) Store() Store {
	return c.store
}

// Stats returns the hit, miss and rebuild counters since start.
func (c *Cache) Stats() (hits, misses, rebuilds int64) {
	return c.hits.Load(), c.misses.Load(), c.rebuilds.Load()
}

// Invalidate removes every artifact whose key starts with prefix.
func (c *Cache) Invalidate(ctx context.Context, prefix string) (int, error) {
	n, err := c.store.DeletePrefix(ctx, prefix)
	if err != nil {
		return n, fmt.Errorf("invalidating artifacts %q: %w", prefix, err)
	}
	c.logger.Info("artifacts invalidated", "prefix", prefix, "deleted", n)
	return n, nil
}

func (c *Cache) observe(key, result string) {
	if c.metrics != nil {
		c.metrics.ArtifactLookupsTotal.WithLabelValues(Kind(key), result).Inc()
	}
}

// Memoize returns the artifact stored under key, building and saving it when
// it is missing, unreadable, or force is set. The artifact is always written
// back whole.
func Memoize[T any](ctx context.Context, c *Cache, key string, force bool, build func(ctx context.Context) (T, error)) (T, error) {
	if !force {
		if v, ok := load[T](ctx, c, key); ok {
			return v, nil
		}
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		if !force {
			if v, ok := load[T](ctx, c, key); ok {
				return v, nil
			}
		}
		return rebuild(ctx, c, key, build)
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("building artifact %s: %w", key, err)
	}
	if shared {
		c.logger.Debug("artifact build shared", "key", key)
	}
	return v.(T), nil
}

func load[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	data, err := c.store.Load(ctx, key)
	if err != nil {
		c.misses.Add(1)
		c.observe(key, "miss")
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("artifact load failed, rebuilding", "key", key, "error", err)
		}
		return v, false
	}
	err = json.Unmarshal(data, &v)
	if err == nil && isNilPointer(v) {
		err = errors.New("artifact decodes to a nil pointer")
	}
	if err != nil {
		c.misses.Add(1)
		c.observe(key, "corrupt")
		c.logger.Warn("artifact corrupt, rebuilding", "key", key, "error", err)
		var zero T
		return zero, false
	}
	c.hits.Add(1)
	c.observe(key, "hit")
	c.logger.Debug("artifact cache hit", "key", key)
	return v, true
}

// isNilPointer reports whether v is a nil pointer, which is what a stored
// "null" decodes to for pointer artifacts such as the ontology graph.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func rebuild[T any](ctx context.Context, c *Cache, key string, build func(ctx context.Context) (T, error)) (any, error) {
	c.logger.Info("building artifact", "key", key)
	start := time.Now()
	v, err := build(ctx)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding artifact: %w", err)
	}
	if err := c.store.Save(ctx, key, data); err != nil {
		return nil, fmt.Errorf("saving artifact: %w", err)
	}

	c.rebuilds.Add(1)
	c.observe(key, "rebuild")
	if c.metrics != nil {
		c.metrics.ArtifactBuildDuration.WithLabelValues(Kind(key)).Observe(elapsed.Seconds())
	}
	c.logger.Info("artifact saved",
		"key", key,
		"bytes", len(data),
		"duration_ms", elapsed.Milliseconds(),
	)
	if c.onRebuilt != nil {
		c.onRebuilt(ctx, key, time.Now().UTC())
	}
	return v, nil
}
