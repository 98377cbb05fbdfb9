package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2beens/clientportal/pkg"
)

func newHashCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the bcrypt hash of a password",
		Long: `Print the bcrypt hash of a password, to be used as password_hash
of an account in the config file.

Examples:
  portalctl hash admin123
  portalctl hash --cost 12 admin123
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("empty password")
			}
			hash, err := pkg.HashPasswordWithCost(args[0], cost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 10, "bcrypt cost")
	return cmd
}
