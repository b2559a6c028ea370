package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// RedisConfig configures the Redis-backed cache.
type RedisConfig struct {
	Addr                  string
	Password              string
	DB                    int
	TLSInsecureSkipVerify bool
	// KeyPrefix namespaces every key this cache writes, so one Redis
	// instance can back more than one deployment.
	KeyPrefix string
}

// Redis is an Embedding Cache backed by a Redis server.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis dials a Redis server and returns a cache. It pings
// immediately so misconfiguration fails at startup rather than on the
// first request.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSInsecureSkipVerify {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "pinging redis at %s", cfg.Addr)
	}

	return &Redis{client: client, prefix: cfg.KeyPrefix}, nil
}

func (r *Redis) namespaced(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (*Entry, bool, error) {
	val, err := r.client.Get(ctx, r.namespaced(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperr.Wrap(apperr.Provider, err, "getting cache key %q", key)
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, false, apperr.Wrap(apperr.Provider, err, "decoding cache entry for %q", key)
	}
	return &entry, true, nil
}

// Set implements Cache. The spec requires no TTL, so entries persist
// until explicitly cleared.
func (r *Redis) Set(ctx context.Context, key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "encoding cache entry for %q", key)
	}
	if err := r.client.Set(ctx, r.namespaced(key), data, 0).Err(); err != nil {
		return apperr.Wrap(apperr.Provider, err, "setting cache key %q", key)
	}
	return nil
}

// Exists implements Cache.
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.namespaced(key)).Result()
	if err != nil {
		return false, apperr.Wrap(apperr.Provider, err, "checking cache key %q", key)
	}
	return n > 0, nil
}

// FlushDB implements Cache.
func (r *Redis) FlushDB(ctx context.Context) error {
	if err := r.client.FlushDB(ctx).Err(); err != nil {
		return apperr.Wrap(apperr.Provider, err, "flushing cache")
	}
	return nil
}

// Close closes the underlying Redis client connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
