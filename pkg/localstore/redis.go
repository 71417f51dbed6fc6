package localstore

import (
	"context"
	"errors"
	"time"

	redisclient "github.com/royaliq/storefront/pkg/redis"
)

// RedisStore backs the localstore with the shared Redis connection, for
// deployments where multiple gateway instances serve the same visitors.
type RedisStore struct {
	client *redisclient.Client
}

func NewRedisStore(client *redisclient.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.client.Namespace(key))
	if errors.Is(err, redisclient.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.client.Namespace(key), value, ttl)
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	namespaced := make([]string, 0, len(keys))
	for _, key := range keys {
		namespaced = append(namespaced, s.client.Namespace(key))
	}
	return s.client.Del(ctx, namespaced...)
}
