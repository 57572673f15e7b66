package sessions

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// RedisClient is the subset of *redis.Client the session store needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisKV keeps the session in Redis so several processes on one machine, or a
// headless agent and a CLI, share a sign-in.
type RedisKV struct {
	client  RedisClient
	prefix  string
	timeout time.Duration
}

var _ KV = (*RedisKV)(nil)

type RedisKVOption func(*RedisKV)

// WithKeyPrefix namespaces the stored keys, e.g. per user account on a shared server.
func WithKeyPrefix(prefix string) RedisKVOption {
	return func(r *RedisKV) {
		r.prefix = prefix
	}
}

func WithOpTimeout(d time.Duration) RedisKVOption {
	return func(r *RedisKV) {
		r.timeout = d
	}
}

func NewRedisKV(client RedisClient, opts ...RedisKVOption) *RedisKV {
	r := &RedisKV{client: client, prefix: "marketplace:", timeout: 3 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRedisClient opens a go-redis client for addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 2,
	})
}

func (r *RedisKV) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "[RedisKV.Get] %s", key)
	}
	return v, true, nil
}

func (r *RedisKV) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return errors.Wrapf(r.client.Set(ctx, r.prefix+key, value, 0).Err(), "[RedisKV.Set] %s", key)
}

func (r *RedisKV) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return errors.Wrapf(r.client.Del(ctx, r.prefix+key).Err(), "[RedisKV.Remove] %s", key)
}
