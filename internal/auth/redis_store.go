package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultSessionTTL = 24 * 7 * time.Hour
	sessionKeyPrefix  = "clientportal-session||"
	profilesSetKey    = "clientportal-sessions"
)

type RedisStore struct {
	redisClient *redis.Client
	ttl         time.Duration
	// injectable clock (for unit testing)
	NowFunc func() time.Time
}

func NewRedisStore(ttl time.Duration, redisClient *redis.Client) *RedisStore {
	return &RedisStore{
		ttl:         ttl,
		redisClient: redisClient,
		NowFunc:     time.Now,
	}
}

func sessionKey(profile string) string {
	return sessionKeyPrefix + profile
}

func (s *RedisStore) Load(ctx context.Context, profile string) (*Session, error) {
	cmd := s.redisClient.Get(ctx, sessionKey(profile))
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	session, err := DecodeSession([]byte(cmd.Val()))
	if err != nil {
		return nil, err
	}

	if s.expired(session) {
		return nil, ErrNoSession
	}

	return session, nil
}

func (s *RedisStore) Save(ctx context.Context, profile string, session *Session) error {
	raw, err := EncodeSession(session)
	if err != nil {
		return err
	}

	if err := s.redisClient.Set(ctx, sessionKey(profile), string(raw), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	// add profile to the set of sessions
	if err := s.redisClient.SAdd(ctx, profilesSetKey, profile).Err(); err != nil {
		return fmt.Errorf("redis add session profile: %w", err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, profile string) error {
	if err := s.redisClient.Del(ctx, sessionKey(profile)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}

	// remove profile from the set of sessions
	if err := s.redisClient.SRem(ctx, profilesSetKey, profile).Err(); err != nil {
		return fmt.Errorf("redis remove session profile: %w", err)
	}

	return nil
}

func (s *RedisStore) expired(session *Session) bool {
	return s.ttl > 0 && s.NowFunc().Sub(session.LastLogin) > s.ttl
}

// ScanAndClean will run through all sessions, and remove the expired or
// malformed ones. Returns the number of removed sessions.
func (s *RedisStore) ScanAndClean(ctx context.Context) int {
	cmd := s.redisClient.SMembers(ctx, profilesSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! session store, scan and clean, get sessions: %s", err)
		return 0
	}

	profiles := cmd.Val()
	if len(profiles) == 0 {
		log.Debugln("=> session store, scan and clean abort, no sessions")
		return 0
	}

	log.Infof("=> session store, scan and clean [%d sessions] start ...", len(profiles))
	var toRemove []string
	for _, profile := range profiles {
		raw, err := s.redisClient.Get(ctx, sessionKey(profile)).Result()
		if errors.Is(err, redis.Nil) {
			// expired by redis already, only the set entry is left
			toRemove = append(toRemove, profile)
			continue
		}
		if err != nil {
			log.Errorf("=> session store, scan and clean profile %s: %s", profile, err)
			continue
		}

		session, err := DecodeSession([]byte(raw))
		if err != nil {
			log.Warnf("=>\twill clean malformed session of profile %s: %s", profile, err)
			toRemove = append(toRemove, profile)
			continue
		}

		if s.expired(session) {
			log.Debugf("=>\twill clean expired session of profile: %s", profile)
			toRemove = append(toRemove, profile)
		}
	}

	removed := 0
	for _, profile := range toRemove {
		if err := s.Delete(ctx, profile); err != nil {
			log.Errorf("=> session store, clean profile %s: %s", profile, err)
			continue
		}
		removed++
	}

	log.Infof("=> session store, scan and clean done, removed %d sessions", removed)
	return removed
}
