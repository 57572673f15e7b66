package token

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Blacklist holds the ids of refresh tokens that were rotated out or logged out.
// An id only needs to be kept until the token would have expired anyway.
type Blacklist interface {
	Add(jti string, exp time.Time) error
	Contains(jti string) bool
}

// MemoryBlacklist prunes expired ids whenever a new one is added.
type MemoryBlacklist struct {
	mu      sync.Mutex
	ids     map[string]time.Time
	nowFunc func() time.Time
}

var _ Blacklist = (*MemoryBlacklist)(nil)

func NewMemoryBlacklist(nowFunc func() time.Time) *MemoryBlacklist {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &MemoryBlacklist{ids: make(map[string]time.Time), nowFunc: nowFunc}
}

func (b *MemoryBlacklist) Add(jti string, exp time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.nowFunc()
	for id, until := range b.ids {
		if now.After(until) {
			delete(b.ids, id)
		}
	}
	b.ids[jti] = exp
	return nil
}

func (b *MemoryBlacklist) Contains(jti string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.ids[jti]
	return ok
}

// Len is the number of ids currently held.
func (b *MemoryBlacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ids)
}

// RedisClient is the subset of *redis.Client the blacklist needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisBlacklist stores each id with a TTL so Redis drops it at expiry. Several mock
// backend processes can share one.
type RedisBlacklist struct {
	client  RedisClient
	prefix  string
	nowFunc func() time.Time
}

var _ Blacklist = (*RedisBlacklist)(nil)

func NewRedisBlacklist(client RedisClient, nowFunc func() time.Time) *RedisBlacklist {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &RedisBlacklist{client: client, prefix: "marketplace:blacklist:", nowFunc: nowFunc}
}

func (b *RedisBlacklist) Add(jti string, exp time.Time) error {
	ttl := exp.Sub(b.nowFunc())
	if ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := b.client.Set(ctx, b.prefix+jti, exp.Unix(), ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisBlacklist.Add]")
	}
	return nil
}

// Contains fails closed: an unreachable Redis treats every token as blacklisted.
func (b *RedisBlacklist) Contains(jti string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	n, err := b.client.Exists(ctx, b.prefix+jti).Result()
	if err != nil {
		log.Err(err).Msg("[RedisBlacklist.Contains]")
		return true
	}
	return n > 0
}
