package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"energy-tariffs/internal/api"
)

var priceRoute string

var priceCmd = &cobra.Command{
	Use:   "price [request.json]",
	Short: "Answer one API request body without the HTTP server",
	Long: `Decode a request body (as POSTed to the API) from a file or stdin and
print the response. --route selects the request kind.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		body, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		ctx := context.Background()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.LoadRefData(ctx); err != nil {
			return err
		}

		req, err := api.Decode(priceRoute, body, a.Location)
		if err != nil {
			return err
		}
		resp, err := a.Service.Dispatch(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	rootCmd.AddCommand(priceCmd)
	priceCmd.Flags().StringVar(&priceRoute, "route", api.RouteEndPrice,
		"request kind (indexingsetting, endprice, endprices, gridcost, excise)")
}
