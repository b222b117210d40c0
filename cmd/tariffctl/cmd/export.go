package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"energy-tariffs/internal/derivation"
	"energy-tariffs/internal/reporting"
)

var (
	exportMonth  string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the monthly index statement",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "statement month (YYYY-MM, default last month)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "md, csv, pdf or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now().In(a.Location)
	month := derivation.MonthOf(now.AddDate(0, 0, -now.Day()))
	if exportMonth != "" {
		if month, err = derivation.ParseMonth(exportMonth); err != nil {
			return err
		}
	}

	report, err := a.Reports.Generate(ctx, month)
	if err != nil {
		return err
	}

	var out []byte
	switch exportFormat {
	case "md":
		out = []byte(reporting.RenderMarkdown(report))
	case "csv":
		out = []byte(reporting.RenderCSV(report.Values))
	case "pdf":
		out, err = reporting.RenderPDF(report)
	case "xlsx":
		out, err = reporting.RenderXLSX(report)
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}
	if err != nil {
		return err
	}

	if exportOut == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	return os.WriteFile(exportOut, out, 0o644)
}
