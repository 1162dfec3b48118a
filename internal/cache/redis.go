package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix is prepended to every redis cache key.
const KeyPrefix = "consultor:cache:"

// redisStore keeps one session's entries under its own key namespace.
type redisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func newRedisStore(client *redis.Client, namespace string, ttl time.Duration) *redisStore {
	return &redisStore{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
	}
}

func (s *redisStore) key(k string) string {
	return RedisKey(s.namespace, k)
}

// RedisKey returns the redis key of a fingerprint within a session namespace.
func RedisKey(namespace, key string) string {
	return KeyPrefix + namespace + ":" + key
}

// Get implements Store.
func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Put implements Store.
func (s *redisStore) Put(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl).Err()
}

// Len implements Store.
func (s *redisStore) Len(ctx context.Context) int {
	n := 0
	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n
}

// Close removes the session's keys. The shared client stays open.
func (s *redisStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
