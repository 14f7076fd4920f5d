// Package idempotency records one-shot keys, such as an Idempotency-Key
// header, so a request is acted on at most once within a TTL.
package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store claims and releases idempotency keys. Implementations must be safe
// for concurrent use.
type Store interface {
	// Claim records key and reports true if this caller is the first to
	// claim it since it last expired or was released.
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets key so it can be claimed again.
	Release(ctx context.Context, key string) error
}

// MemoryStore keeps claimed keys in a map. Expired entries are dropped
// lazily when the key is claimed again and during Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns a MemoryStore whose claims last ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Claim(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if claimedAt, ok := s.entries[key]; ok && now.Sub(claimedAt) < s.ttl {
		return false, nil
	}
	s.entries[key] = now
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for k, claimedAt := range s.entries {
		if now.Sub(claimedAt) >= s.ttl {
			delete(s.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked keys, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RedisStore claims keys with SET NX so that claims are shared by every
// storefront replica.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore writing keys as "<prefix>:<key>".
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.redisKey(key), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
