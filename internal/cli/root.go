// Package cli implements the scg-mediator command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/next-trace/scg-mediator/config"
)

type globalFlags struct {
	configPath string
	verbose    bool
}

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "scg-mediator",
		Short: "In-process mediator and event bus",
		Long: `scg-mediator runs requests through cached middleware and processor pipelines
and fans events out to a bounded worker pool.

Examples:
  scg-mediator demo --orders 20 --workers 1
  scg-mediator demo --relay memory
  scg-mediator config show --config ./scg-mediator.yaml`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "",
		"Path to config file (default: ./scg-mediator.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.AddCommand(newDemoCommand(&g))
	rootCmd.AddCommand(newConfigCommand(&g))

	return rootCmd
}

// load reads configuration and builds the logger it describes.
func (g *globalFlags) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}

	if g.verbose {
		cfg.Logging.Level = "debug"
	}

	return cfg, config.NewLogger(cfg.Logging), nil
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
