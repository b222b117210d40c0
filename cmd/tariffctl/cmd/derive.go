package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"energy-tariffs/internal/derivation"
)

var (
	deriveDate  string
	deriveMonth string
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Compute and store derived monthly values",
	Long: `Run every configured derivation rule.

With --date the month is derived only when the date is the last day of
its month. With --month a past month is derived again (backfill); the current month
is refused until its last day.
Without either, today in the operating timezone is used.`,
	RunE: runDerive,
}

func init() {
	rootCmd.AddCommand(deriveCmd)
	deriveCmd.Flags().StringVar(&deriveDate, "date", "", "calculation date (YYYY-MM-DD)")
	deriveCmd.Flags().StringVar(&deriveMonth, "month", "", "month to backfill (YYYY-MM)")
	deriveCmd.MarkFlagsMutuallyExclusive("date", "month")
}

func runDerive(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var names []string
	if deriveMonth != "" {
		month, err := derivation.ParseMonth(deriveMonth)
		if err != nil {
			return err
		}
		stored, err := a.Calculator.RunMonth(ctx, month, time.Now().In(a.Location))
		if err != nil {
			return err
		}
		for _, v := range stored {
			names = append(names, v.Key().String())
		}
	} else {
		date := time.Now().In(a.Location)
		if deriveDate != "" {
			if date, err = time.ParseInLocation(time.DateOnly, deriveDate, a.Location); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
		}
		if names, err = a.Derive(ctx, date); err != nil {
			return err
		}
	}

	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing derived")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}
