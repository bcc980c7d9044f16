package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/filterpipe/internal/config"
)

// NewRootCmd creates the root command for filterpipe.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filterpipe",
		Short: "Validate and run batch filter pipelines",
		Long: `filterpipe runs ordered pipelines of filters over a shared data store.

Every run has two phases. Preflight validates each filter against the
data its predecessors will create, without touching real data. Execution
then runs the filters in order and stops at the first failure.

Pipelines are JSON documents. Per-pipeline overrides (disabled filters,
parameter values, report format, timeout) live in a .filterpipe file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .filterpipe in current or home directory)")
	cmd.PersistentFlags().String("log-format", config.DefaultLogFormat,
		"Log format: text or json")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewPreflightCmd())
	cmd.AddCommand(NewFiltersCmd())
	cmd.AddCommand(NewGraphCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
