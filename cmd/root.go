// Package cmd defines and implements the CLI commands for the docharvest
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docharvest",
		Short: "A durable document harvester for regulatory publication sources.",
		Long: `docharvest watches a fixed roster of publication sources, pulls newly
published documents inside a sliding date window, and persists each exactly
once: an append-only JSONL record log plus write-once attachment files,
deduplicated by content-derived identifiers that survive restarts.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
