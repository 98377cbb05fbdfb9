package main

import (
	"github.com/spf13/cobra"

	"github.com/2beens/clientportal/internal/config"
)

type rootOptions struct {
	env        string
	configPath string
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.env, o.configPath)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Operator tooling for the client portal",
		Long: `portalctl helps operating the client portal service.

It hashes account passwords for the config file, lists the application
catalog, cleans stale sessions from redis and manages the activity log.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.env, "env", "development", "environment [prod | production | dev | development]")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "./config.toml", "path for the TOML config file")

	rootCmd.AddCommand(
		newHashCmd(),
		newAppsCmd(),
		newSessionsCmd(opts),
		newActivityCmd(opts),
	)
	return rootCmd
}
