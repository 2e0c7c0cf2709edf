package cache

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore is the networked key-value tier. Redis enforces expiry itself
// via per-key TTL, so entries read from it are always fresh.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore wraps an already-connected Redis client as a cache tier.
func NewRedisStore(client *redis.Client, logger zerolog.Logger) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		client: client,
		logger: logger.With().Str("tier", "redis").Logger(),
	}
}

// Name implements Store.
func (s *RedisStore) Name() string { return "redis" }

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}

	// Redis TTL should have evicted stale entries already, but the
	// freshness invariant does not depend on it.
	if entry.Expired() {
		return nil, ErrMiss
	}

	return &entry, nil
}

// Set implements Store. The Redis key TTL mirrors the entry's own window so
// stale entries are evicted server-side.
func (s *RedisStore) Set(ctx context.Context, key string, entry *Entry) error {
	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	s.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Stored cache entry")
	return nil
}
