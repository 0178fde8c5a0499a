package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardauth/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrNotCached is returned when a lookup misses.
var ErrNotCached = errors.New("value not cached")

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Card details caching. The directory is the source of truth; entries carry a
// short TTL so status changes propagate.
func (s *CacheService) CacheCardDetails(ctx context.Context, lookupKey string, card *models.CardDetails, ttl time.Duration) error {
	if card == nil {
		return errors.New("cannot cache nil card details")
	}
	return s.SetWithTTL(ctx, s.GenerateKey("card", "lookup", lookupKey), card, ttl)
}

func (s *CacheService) GetCardDetails(ctx context.Context, lookupKey string) (*models.CardDetails, error) {
	var card models.CardDetails
	found, err := s.Get(ctx, s.GenerateKey("card", "lookup", lookupKey), &card)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotCached
	}
	return &card, nil
}

// Idempotency cache: decision ids keyed by the full client-supplied
// idempotency key. Keyed by the raw key string so hash collisions on the
// derived requestId cannot produce false hits.
func (s *CacheService) CacheIdempotentDecision(ctx context.Context, idempotencyKey string, decisionID int64, ttl time.Duration) error {
	return s.client.Set(ctx, s.GenerateKey("idempotency", "key", idempotencyKey), decisionID, ttl).Err()
}

func (s *CacheService) GetIdempotentDecision(ctx context.Context, idempotencyKey string) (int64, error) {
	id, err := s.client.Get(ctx, s.GenerateKey("idempotency", "key", idempotencyKey)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrNotCached
		}
		return 0, fmt.Errorf("failed to get idempotency entry: %w", err)
	}
	return id, nil
}

// AcquireLock takes a best-effort advisory lock via SetNX. Returns false when
// another owner holds the lock.
func (s *CacheService) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.GenerateKey("lock", "name", name), "1", ttl).Result()
}

// ReleaseLock drops an advisory lock.
func (s *CacheService) ReleaseLock(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.GenerateKey("lock", "name", name)).Err()
}

// FlushAll flushes all keys from the cache
func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
