package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/2beens/clientportal/internal/portal"
)

func newAppsCmd() *cobra.Command {
	appsCmd := &cobra.Command{
		Use:   "apps",
		Short: "Inspect the application catalog",
	}

	var (
		search   string
		category string
		asJSON   bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the catalog applications",
		Long: `List the catalog applications, optionally filtered like the apps page.

Examples:
  portalctl apps list
  portalctl apps list --category Infrastructure --search kra
  portalctl apps list --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := portal.LoadContent()
			if err != nil {
				return fmt.Errorf("load portal content: %w", err)
			}
			apps, err := content.Catalog.Filter(search, category)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(apps)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tSTATUS\tLAUNCHABLE")
			for _, app := range apps {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", app.ID, app.Title, app.Category, app.Status, app.Launchable())
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVar(&search, "search", "", "case insensitive search over title and description")
	listCmd.Flags().StringVar(&category, "category", portal.CategoryAll, "catalog category")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print json instead of a table")

	appsCmd.AddCommand(listCmd)
	return appsCmd
}
