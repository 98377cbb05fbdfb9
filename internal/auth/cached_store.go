package auth

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const DefaultSessionCacheTTL = 30 * time.Second

// CachedStore is a read-through, in-process cache in front of a SessionStore,
// saving a redis round trip on every guarded request. Entries live for a few
// seconds only, so a session removed from the backing store by another
// process (sign-out, sweeper, portalctl) stops being admitted shortly after.
type CachedStore struct {
	next       SessionStore
	cache      *freecache.Cache
	ttlSeconds int
	sessionTTL time.Duration
	// injectable clock (for unit testing)
	NowFunc func() time.Time
}

func NewCachedStore(next SessionStore, cacheSizeMegabytes int, cacheTTL, sessionTTL time.Duration) *CachedStore {
	return newCachedStore(next, cacheSizeMegabytes, cacheTTL, sessionTTL, nil)
}

func newCachedStore(
	next SessionStore,
	cacheSizeMegabytes int,
	cacheTTL, sessionTTL time.Duration,
	timer freecache.Timer,
) *CachedStore {
	ttlSeconds := int(cacheTTL.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	size := cacheSizeMegabytes * 1024 * 1024
	cache := freecache.NewCache(size)
	if timer != nil {
		cache = freecache.NewCacheCustomTimer(size, timer)
	}

	return &CachedStore{
		next:       next,
		cache:      cache,
		ttlSeconds: ttlSeconds,
		sessionTTL: sessionTTL,
		NowFunc:    time.Now,
	}
}

func (s *CachedStore) Load(ctx context.Context, profile string) (*Session, error) {
	if raw, err := s.cache.Get([]byte(profile)); err == nil {
		if session, err := DecodeSession(raw); err == nil && !s.expired(session) {
			return session, nil
		}
		s.cache.Del([]byte(profile))
	}

	session, err := s.next.Load(ctx, profile)
	if err != nil {
		return nil, err
	}
	if s.expired(session) {
		return nil, ErrNoSession
	}

	s.put(profile, session)
	return session, nil
}

func (s *CachedStore) Save(ctx context.Context, profile string, session *Session) error {
	if err := s.next.Save(ctx, profile, session); err != nil {
		s.cache.Del([]byte(profile))
		return err
	}
	s.put(profile, session)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, profile string) error {
	s.cache.Del([]byte(profile))
	return s.next.Delete(ctx, profile)
}

func (s *CachedStore) expired(session *Session) bool {
	return s.sessionTTL > 0 && s.NowFunc().Sub(session.LastLogin) > s.sessionTTL
}

func (s *CachedStore) put(profile string, session *Session) {
	raw, err := EncodeSession(session)
	if err != nil {
		return
	}
	if err := s.cache.Set([]byte(profile), raw, s.ttlSeconds); err != nil {
		log.Warnf("session cache set for profile %s: %s", profile, err)
	}
}
