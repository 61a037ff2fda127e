// Package dedup tracks which external notifications have already been
// processed, so webhook retries from the payment gateway are absorbed
// before they reach the order service.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// keyWebhook marks a processed gateway notification: dedup:webhook:{code}
	keyWebhook = "dedup:webhook:%s"

	// TTLDedup bounds how long a notification code is remembered. Gateways
	// stop retrying well within this window.
	TTLDedup = 48 * time.Hour
)

// Store remembers which notification codes have been fully processed.
// Seen is a plain lookup; MarkSeen claims the code and reports whether
// this caller was first.
type Store interface {
	Seen(ctx context.Context, notificationCode string) (bool, error)
	MarkSeen(ctx context.Context, notificationCode string) (first bool, err error)
}

// RedisStore backs deduplication with redis SET NX, shared across
// replicas.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore creates a redis-backed dedup store.
func NewRedisStore(rdb *redis.Client, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		ttl:    TTLDedup,
		logger: logger.With().Str("component", "dedup").Logger(),
	}
}

// Seen reports whether the notification code was processed before. Redis
// errors are returned to the caller: the safe fallback on infrastructure
// failure is to process the notification, since the order service absorbs
// replays on its own.
func (s *RedisStore) Seen(ctx context.Context, notificationCode string) (bool, error) {
	key := fmt.Sprintf(keyWebhook, notificationCode)
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup lookup failed: %w", err)
	}
	return n > 0, nil
}

// MarkSeen atomically claims the notification code.
func (s *RedisStore) MarkSeen(ctx context.Context, notificationCode string) (bool, error) {
	key := fmt.Sprintf(keyWebhook, notificationCode)
	first, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup mark failed: %w", err)
	}
	if !first {
		s.logger.Debug().Str("notification_code", notificationCode).Msg("duplicate notification detected")
	}
	return first, nil
}

// MemoryStore is an in-process Store for tests and single-node setups
// running without redis.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryStore creates an empty in-memory dedup store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

func (s *MemoryStore) Seen(_ context.Context, notificationCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[notificationCode]
	return ok, nil
}

func (s *MemoryStore) MarkSeen(_ context.Context, notificationCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[notificationCode]; ok {
		return false, nil
	}
	s.seen[notificationCode] = struct{}{}
	return true, nil
}
