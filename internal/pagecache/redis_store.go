package pagecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces page keys in redis.
const DefaultKeyPrefix = "spacetraveling:page:"

// RedisStore keeps pages as JSON values under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(route string) string {
	return s.prefix + route
}

func (s *RedisStore) Get(ctx context.Context, route string) (Page, error) {
	val, err := s.client.Get(ctx, s.key(route)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Page{}, ErrMiss
	}
	if err != nil {
		return Page{}, err
	}
	var page Page
	if err := json.Unmarshal(val, &page); err != nil {
		return Page{}, fmt.Errorf("pagecache: decode %s: %w", route, err)
	}
	return page, nil
}

func (s *RedisStore) Put(ctx context.Context, page Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(page.Route), data, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, route string) error {
	return s.client.Del(ctx, s.key(route)).Err()
}

func (s *RedisStore) Purge(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
