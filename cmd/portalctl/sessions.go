package main

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/2beens/clientportal/internal/auth"
)

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage the persisted sessions",
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove expired and malformed sessions from redis",
		Long: `Remove expired and malformed sessions from redis, the same pass the
service runs periodically. The redis password is read from PORTAL_REDIS_PASS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.RedisDisabled {
				return errors.New("redis is disabled in this environment, sessions are not persisted")
			}

			rdb := redis.NewClient(&redis.Options{
				Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
				Password: os.Getenv("PORTAL_REDIS_PASS"),
			})
			defer rdb.Close()

			if err := rdb.Ping(cmd.Context()).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}

			removed := auth.NewRedisStore(cfg.SessionTTL.Duration, rdb).ScanAndClean(cmd.Context())
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d sessions\n", removed)
			return err
		},
	}

	sessionsCmd.AddCommand(cleanCmd)
	return sessionsCmd
}
