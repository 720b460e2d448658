package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis server. Keys are namespaced with a prefix.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client. The prefix is prepended verbatim,
// e.g. "storefront:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Join(ErrUnavailable, err)
	}
	return v, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

// Delete issues a single DEL for all keys, which Redis applies atomically.
func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

// Ping reports whether the server is reachable. Used by readiness checks.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

// RedisConfig describes how to reach the Redis server backing a RedisStore.
type RedisConfig struct {
	URL           string        `env:"STOREFRONT_REDIS_URL"`
	Prefix        string        `env:"STOREFRONT_REDIS_PREFIX" envDefault:"storefront:"`
	RetryAttempts int           `env:"STOREFRONT_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"STOREFRONT_REDIS_RETRY_INTERVAL" envDefault:"1s"`
}

// DialRedis parses cfg.URL, pings the server up to RetryAttempts times and
// returns a store bound to cfg.Prefix.
func DialRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, errors.Join(ErrUnavailable, errors.New("empty redis url"))
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return NewRedisStore(client, cfg.Prefix), nil
		}
		_ = client.Close()

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrUnavailable, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, errors.Join(ErrUnavailable, lastErr)
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
