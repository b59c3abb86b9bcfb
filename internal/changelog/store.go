package changelog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrMiss is returned by a Store when no value is cached.
var ErrMiss = errors.New("status-since not cached")

// Store caches resolved status-since values between resolutions. Only
// resolved values are stored; unknown stays unknown.
type Store interface {
	Get(ctx context.Context, status, issueKey string) (time.Time, error)
	Set(ctx context.Context, status, issueKey string, since time.Time) error
}

func storeKey(status, issueKey string) string {
	return "jira-quality:status-since:" + strings.ToLower(strings.TrimSpace(status)) + ":" + issueKey
}

// MemoryStore is an in-process Store with a fixed TTL.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	since   time.Time
	expires time.Time
}

// NewMemoryStore creates an in-process store. A non-positive TTL never expires.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, status, issueKey string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := storeKey(status, issueKey)
	e, ok := s.entries[k]
	if !ok {
		return time.Time{}, ErrMiss
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		delete(s.entries, k)
		return time.Time{}, ErrMiss
	}
	return e.since, nil
}

func (s *MemoryStore) Set(_ context.Context, status, issueKey string, since time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{since: since}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.entries[storeKey(status, issueKey)] = e
	return nil
}

// RedisStore keeps resolved values in Redis so they survive restarts and are
// shared between the HTTP and MCP servers.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis URL and verifies the connection.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Dur("ttl", ttl).Msg("Status-since cache backed by Redis")
	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, status, issueKey string) (time.Time, error) {
	raw, err := s.client.Get(ctx, storeKey(status, issueKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, ErrMiss
		}
		return time.Time{}, fmt.Errorf("redis get: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, ErrMiss
	}
	return t, nil
}

func (s *RedisStore) Set(ctx context.Context, status, issueKey string, since time.Time) error {
	if err := s.client.Set(ctx, storeKey(status, issueKey), since.Format(time.RFC3339Nano), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
