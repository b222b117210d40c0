package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"energy-tariffs/internal/catalog"
)

var (
	catalogJSON bool
	catalogID   string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List every known series",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var entries []catalog.Entry
		if catalogID != "" {
			e, err := a.Repo.Catalog().Lookup(ctx, catalogID)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		} else if entries, err = a.Repo.Catalog().List(ctx); err != nil {
			return err
		}
		if catalogJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSOURCE\tNAME\tTIMEFRAME\tORIGIN")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Source, e.Name, e.Timeframe, e.Origin)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "print JSON")
	catalogCmd.Flags().StringVar(&catalogID, "id", "", "show only the series with this catalog ID")
}
