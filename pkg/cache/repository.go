package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/unicampus/registrar-api/pkg/errors"
)

// Repository stores JSON-encoded payloads in Redis.
type Repository struct {
	client *redis.Client
}

// NewRepository wraps a Redis client.
func NewRepository(client *redis.Client) *Repository {
	return &Repository{client: client}
}

// Get decodes the cached payload into dest. A missing key surfaces as
// ErrCacheMiss so callers can distinguish it from transport failures.
func (r *Repository) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// Set stores the JSON encoding of value under key with the given TTL.
func (r *Repository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// DeleteByPattern removes every key matching the glob pattern.
func (r *Repository) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
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
	return r.client.Del(ctx, keys...).Err()
}
