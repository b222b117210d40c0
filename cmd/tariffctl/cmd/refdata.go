package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"energy-tariffs/internal/refdata"
)

var (
	refdataGrid   []string
	refdataExcise string
)

var refdataCmd = &cobra.Command{
	Use:   "refdata",
	Short: "Reference tariff data commands",
}

var refdataLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace stored tariffs with operator files",
	Long: `Load grid tariffs from operator XLSX sheets and excise tables from TOML.

Without flags the files listed under refdata in the config are loaded.
Every file is read before anything is written.`,
	RunE: runRefdataLoad,
}

func init() {
	rootCmd.AddCommand(refdataCmd)
	refdataCmd.AddCommand(refdataLoadCmd)
	refdataLoadCmd.Flags().StringArrayVar(&refdataGrid, "grid", nil, `grid sheet as "provider=path" (repeatable)`)
	refdataLoadCmd.Flags().StringVar(&refdataExcise, "excise", "", "excise TOML file")
}

func runRefdataLoad(cmd *cobra.Command, args []string) error {
	src := cfg.RefData
	if len(refdataGrid) > 0 || refdataExcise != "" {
		src = refdata.Sources{Excise: refdataExcise}
		for _, g := range refdataGrid {
			provider, path, ok := strings.Cut(g, "=")
			if !ok || provider == "" || path == "" {
				return fmt.Errorf("--grid %q: want provider=path", g)
			}
			src.Grid = append(src.Grid, refdata.GridSource{Provider: provider, Path: path})
		}
	}
	if src.Empty() {
		return fmt.Errorf("no reference files given")
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.RefData.Load(ctx, src); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d grid sheet(s), excise: %t\n", len(src.Grid), src.Excise != "")
	return nil
}
