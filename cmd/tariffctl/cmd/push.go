package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"energy-tariffs/internal/ingest"
)

var (
	pushEndpoint  string
	pushToken     string
	pushFrameSize int
	pushTimeout   time.Duration
)

var pushCmd = &cobra.Command{
	Use:   "push values.json",
	Short: "Send index values to a running server over WebSocket",
	Long: `Read a JSON array of values ({"name","value","timeframe","date","source","origin"})
and push it to the ingest endpoint in frames.`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().StringVar(&pushEndpoint, "endpoint", "ws://localhost:8080/ws/ingest", "ingest endpoint")
	pushCmd.Flags().StringVar(&pushToken, "token", os.Getenv("TARIFFS_TOKEN"), "bearer token")
	pushCmd.Flags().IntVar(&pushFrameSize, "frame-size", ingest.DefaultFrameSize, "values per frame")
	pushCmd.Flags().DurationVar(&pushTimeout, "timeout", 5*time.Minute, "overall timeout")
}

func runPush(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var wire []ingest.Value
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	values, err := ingest.Frame{Values: wire}.Decode()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	clientCfg := ingest.DefaultClientConfig()
	clientCfg.Token = pushToken
	client, err := ingest.Dial(ctx, pushEndpoint, &clientCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := client.SendAll(ctx, values, pushFrameSize)
	fmt.Fprintf(cmd.OutOrStdout(), "accepted %d of %d values\n", n, len(values))
	return err
}
