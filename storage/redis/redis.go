// Package redis implements storage.Store on Redis. GETDEL gives the
// atomic single-use semantics OAuth state consumption needs, and Redis
// enforces TTLs server-side.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/storage"
)

type Store struct {
	client *goredis.Client
}

func New(addr, password string) *Store {
	return &Store{
		client: goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// NewWithClient wraps an existing client, e.g. one pointed at a test server.
func NewWithClient(client *goredis.Client) *Store {
	return &Store{client: client}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kiterrors.Wrapf(err, "redis.Get %s", key)
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return kiterrors.Wrapf(err, "redis.Put %s", key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return kiterrors.Wrapf(err, "redis.Delete %s", key)
	}
	return nil
}

func (s *Store) GetDelete(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kiterrors.Wrapf(err, "redis.GetDelete %s", key)
	}
	return value, true, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
