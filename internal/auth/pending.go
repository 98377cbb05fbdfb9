package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
)

const (
	DefaultPendingTTL = 10 * time.Minute
	pendingKeyPrefix  = "clientportal-pending||"
)

// PendingStore holds the identity between a successful credential check and
// the OTP confirmation. It is volatile and never touches the session store.
type PendingStore interface {
	Put(ctx context.Context, profile string, identity Identity) error
	Get(ctx context.Context, profile string) (*Identity, error)
	Drop(ctx context.Context, profile string) error
}

var (
	_ PendingStore = (*CachePendingStore)(nil)
	_ PendingStore = (*RedisPendingStore)(nil)
)

func pendingKey(profile string) string {
	return pendingKeyPrefix + profile
}

// RedisPendingStore keeps the pending identity in redis, so the otp step can
// land on any replica. The key expires with the ttl.
type RedisPendingStore struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisPendingStore(redisClient *redis.Client, ttl time.Duration) *RedisPendingStore {
	return &RedisPendingStore{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (s *RedisPendingStore) Put(ctx context.Context, profile string, identity Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal pending identity: %w", err)
	}
	if err := s.redisClient.Set(ctx, pendingKey(profile), string(raw), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set pending identity: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) Get(ctx context.Context, profile string) (*Identity, error) {
	raw, err := s.redisClient.Get(ctx, pendingKey(profile)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoPending
		}
		return nil, fmt.Errorf("redis get pending identity: %w", err)
	}

	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, ErrNoPending
	}
	return &identity, nil
}

func (s *RedisPendingStore) Drop(ctx context.Context, profile string) error {
	if err := s.redisClient.Del(ctx, pendingKey(profile)).Err(); err != nil {
		return fmt.Errorf("redis delete pending identity: %w", err)
	}
	return nil
}

type CachePendingStore struct {
	cache      *freecache.Cache
	ttlSeconds int
}

func NewCachePendingStore(cacheSizeMegabytes int, ttl time.Duration) *CachePendingStore {
	return &CachePendingStore{
		cache:      freecache.NewCache(cacheSizeMegabytes * 1024 * 1024),
		ttlSeconds: int(ttl.Seconds()),
	}
}

func (s *CachePendingStore) Put(_ context.Context, profile string, identity Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal pending identity: %w", err)
	}
	return s.cache.Set([]byte(profile), raw, s.ttlSeconds)
}

func (s *CachePendingStore) Get(_ context.Context, profile string) (*Identity, error) {
	raw, err := s.cache.Get([]byte(profile))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, ErrNoPending
		}
		return nil, err
	}

	var identity Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		s.cache.Del([]byte(profile))
		return nil, ErrNoPending
	}
	return &identity, nil
}

func (s *CachePendingStore) Drop(_ context.Context, profile string) error {
	s.cache.Del([]byte(profile))
	return nil
}
