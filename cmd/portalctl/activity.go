package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/2beens/clientportal/internal/activity"
	"github.com/2beens/clientportal/internal/config"
	"github.com/2beens/clientportal/internal/db"
)

func newActivityCmd(opts *rootOptions) *cobra.Command {
	activityCmd := &cobra.Command{
		Use:   "activity",
		Short: "Manage the sign in activity log",
		Long: `Manage the sign in activity log kept in postgres.
The db password is read from PORTAL_DB_PASS.`,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the activity schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := openActivityDB(cmd, opts)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := activity.NewPsqlRepo(pool).Migrate(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "activity schema up to date")
			return err
		},
	}

	var limit int
	recentCmd := &cobra.Command{
		Use:   "recent <email>",
		Short: "Print the latest activity of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openActivityDB(cmd, opts)
			if err != nil {
				return err
			}
			defer pool.Close()

			entries, err := activity.NewPsqlRepo(pool).ListRecent(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printEntries(cmd, entries, time.Now())
		},
	}
	recentCmd.Flags().IntVar(&limit, "limit", 10, "max entries, 0 for all")

	activityCmd.AddCommand(migrateCmd, recentCmd)
	return activityCmd
}

func openActivityDB(cmd *cobra.Command, opts *rootOptions) (*pgxpool.Pool, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.ActivityLogOn {
		return nil, errors.New("activity log is disabled in this environment")
	}
	return newActivityPool(cmd, cfg)
}

func newActivityPool(cmd *cobra.Command, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewDBPool(cmd.Context(), db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("PORTAL_DB_PASS"),
	})
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(cmd.Context()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

func printEntries(cmd *cobra.Command, entries []activity.Entry, now time.Time) error {
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "no activity")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tACTION\tTYPE\tIP\tCITY")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", activity.TimeAgo(now, e.CreatedAt), e.Action, e.Type, e.IP, e.City)
	}
	return tw.Flush()
}
