package artifact

import (
	"context"
	"fmt"

	pkgredis "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/resilience"
)

const redisKeyPrefix = "artifact:"

// RedisStore keeps artifacts as plain Redis strings without expiry.
type RedisStore struct {
	client *pkgredis.Client
	retry  resilience.RetryConfig
}

func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		retry:  resilience.RetryConfig{MaxAttempts: 3},
	}
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, redisKeyPrefix+key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("loading artifact %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return resilience.Retry(ctx, "artifact-save", s.retry, func() error {
		return s.client.Set(ctx, redisKeyPrefix+key, data, 0)
	})
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	n, err := s.client.FlushByPattern(ctx, redisKeyPrefix+prefix+"*")
	return int(n), err
}
