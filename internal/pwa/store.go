package pwa

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
)

const (
	// DefaultDismissWindow is how long the install prompt stays hidden after a dismissal.
	DefaultDismissWindow = 24 * time.Hour
	dismissedKeyPrefix   = "clientportal-pwa-dismissed||"
)

// DismissalStore keeps the last install prompt dismissal per profile.
type DismissalStore interface {
	Dismiss(ctx context.Context, profile string, at time.Time) error
	// DismissedAt returns false when there is no dismissal on record.
	DismissedAt(ctx context.Context, profile string) (time.Time, bool, error)
}

var (
	_ DismissalStore = (*RedisDismissals)(nil)
	_ DismissalStore = (*CacheDismissals)(nil)
)

func dismissedKey(profile string) string {
	return dismissedKeyPrefix + profile
}

type RedisDismissals struct {
	redisClient *redis.Client
	window      time.Duration
}

func NewRedisDismissals(redisClient *redis.Client, window time.Duration) *RedisDismissals {
	return &RedisDismissals{
		redisClient: redisClient,
		window:      window,
	}
}

// Dismiss stores the unix milliseconds of the dismissal. The record expires
// with the window, nothing outlives it.
func (d *RedisDismissals) Dismiss(ctx context.Context, profile string, at time.Time) error {
	value := strconv.FormatInt(at.UnixMilli(), 10)
	if err := d.redisClient.Set(ctx, dismissedKey(profile), value, d.window).Err(); err != nil {
		return fmt.Errorf("redis set pwa dismissal: %w", err)
	}
	return nil
}

func (d *RedisDismissals) DismissedAt(ctx context.Context, profile string) (time.Time, bool, error) {
	value, err := d.redisClient.Get(ctx, dismissedKey(profile)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("redis get pwa dismissal: %w", err)
	}

	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// treated as never dismissed
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

// CacheDismissals is the in process variant, used when redis is disabled.
type CacheDismissals struct {
	cache         *freecache.Cache
	windowSeconds int
}

func NewCacheDismissals(cacheSizeMegabytes int, window time.Duration) *CacheDismissals {
	return &CacheDismissals{
		cache:         freecache.NewCache(cacheSizeMegabytes * 1024 * 1024),
		windowSeconds: int(window.Seconds()),
	}
}

func (d *CacheDismissals) Dismiss(_ context.Context, profile string, at time.Time) error {
	value := strconv.FormatInt(at.UnixMilli(), 10)
	return d.cache.Set([]byte(dismissedKey(profile)), []byte(value), d.windowSeconds)
}

func (d *CacheDismissals) DismissedAt(_ context.Context, profile string) (time.Time, bool, error) {
	value, err := d.cache.Get([]byte(dismissedKey(profile)))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}

	ms, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}
