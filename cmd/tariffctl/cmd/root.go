// Package cmd provides the tariffctl commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"energy-tariffs/internal/app"
	"energy-tariffs/internal/config"
	"energy-tariffs/internal/logging"
)

var (
	cfgFile   string
	verbose   bool
	useMemory bool

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tariffctl",
	Short: "Operate the energy tariff store",
	Long: `tariffctl runs operator tasks against the configured tariff store.

Examples:
  tariffctl migrate
  tariffctl refdata load --grid "Fluvius Antwerpen=fluvius.xlsx" --excise excise.toml
  tariffctl derive --month 2023-04
  tariffctl price endprice.json
  tariffctl export --month 2023-04 --format pdf -o statement.pdf`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $TARIFFS_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "use-memory", false, "use in-memory storage")
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if useMemory {
		cfg.Store.Backend = config.BackendMemory
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
	return nil
}

// openApp wires the service for one command.
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg, logging.Logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
