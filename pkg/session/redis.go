package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "hcconsole:session:"

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the session hashes (default "hcconsole:session:").
	Prefix      string
	DialTimeout time.Duration
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig(addr string) RedisConfig {
	return RedisConfig{
		Addr:        addr,
		Prefix:      defaultRedisPrefix,
		DialTimeout: 5 * time.Second,
	}
}

// RedisStore keeps each session as one Redis hash. The hash expires as a
// whole, its TTL being refreshed on every write.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(sid string) string {
	return r.prefix + sid
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	value, err := r.client.HGet(ctx, r.key(sid), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget: %w", err)
	}
	return value, true, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, sid, key, value string, ttl time.Duration) error {
	hashKey := r.key(sid)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, hashKey, key, value)
	if ttl > 0 {
		pipe.Expire(ctx, hashKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.key(sid), keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

// Touch implements Store.
func (r *RedisStore) Touch(ctx context.Context, sid string, ttl time.Duration) (bool, error) {
	hashKey := r.key(sid)
	if ttl <= 0 {
		n, err := r.client.Exists(ctx, hashKey).Result()
		if err != nil {
			return false, fmt.Errorf("redis exists: %w", err)
		}
		return n > 0, nil
	}
	ok, err := r.client.Expire(ctx, hashKey, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis expire: %w", err)
	}
	return ok, nil
}

// Purge implements Store. Redis expires session hashes itself.
func (r *RedisStore) Purge(_ context.Context) (int64, error) {
	return 0, nil
}

// Ping implements Store.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
