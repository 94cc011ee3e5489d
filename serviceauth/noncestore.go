package serviceauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore records nonces for the duration of the replay window. FirstUse
// must be atomic: two concurrent requests presenting the same client/nonce
// pair get exactly one true.
type NonceStore interface {
	FirstUse(ctx context.Context, clientID, nonce string, ttl time.Duration) (bool, error)
}

// RedisNonceStore backs the replay check with Redis SET NX, which gives the
// atomic check-and-record in one round trip and free eviction via TTL.
type RedisNonceStore struct {
	redis redis.UniversalClient
}

var _ NonceStore = (*RedisNonceStore)(nil)

func NewRedisNonceStore(redisClient redis.UniversalClient) *RedisNonceStore {
	return &RedisNonceStore{redis: redisClient}
}

func (s *RedisNonceStore) FirstUse(ctx context.Context, clientID, nonce string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, nonceKey(clientID, nonce), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("[RedisNonceStore.FirstUse] SetNX: %w", err)
	}
	return ok, nil
}

func nonceKey(clientID, nonce string) string {
	return fmt.Sprintf("portal-auth:nonce:%s:%s", clientID, nonce)
}

// MemoryNonceStore is the in-process fallback used in tests and single-node
// deployments. Expired entries are evicted lazily on each call.
type MemoryNonceStore struct {
	seen map[string]time.Time // key -> expiry
	lock sync.Mutex
	now  func() time.Time
}

var _ NonceStore = (*MemoryNonceStore)(nil)

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (s *MemoryNonceStore) FirstUse(_ context.Context, clientID, nonce string, ttl time.Duration) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now()
	for key, expiry := range s.seen {
		if !expiry.After(now) {
			delete(s.seen, key)
		}
	}

	key := nonceKey(clientID, nonce)
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)
	return true, nil
}
