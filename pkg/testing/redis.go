package testing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient connects to the redis at addr and waits until it answers a
// ping, or until the timeout is reached. Used against throwaway containers.
func NewRedisClient(ctx context.Context, addr, password string, timeout time.Duration) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for {
		if lastErr = rdb.Ping(ctx).Err(); lastErr == nil {
			return rdb, nil
		}
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, fmt.Errorf("redis [%s] not ready: %w", addr, lastErr)
		case <-time.After(200 * time.Millisecond):
		}
	}
}
