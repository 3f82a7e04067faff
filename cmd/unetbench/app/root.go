// Package app provides the command-line interface implementation for
// unetbench.
//
// This package contains all CLI commands and their implementations,
// following the cobra command pattern. Commands are organized
// hierarchically with a root command and subcommands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/oobench/unetbench/internal/logger"
)

const (
	// cliName is the name of the CLI application
	cliName = "unetbench"

	// cliDescription is the short description shown in help text
	cliDescription = "unetbench - U-Net training benchmark sweeps"
)

// GlobalOptions holds options that are common to all commands
type GlobalOptions struct {
	// ConfigPath is the sweep configuration YAML file
	ConfigPath string

	// Verbose enables debug output
	Verbose bool
}

// NewUnetbenchCommand creates the root unetbench command with all
// subcommands.
//
// The root command provides the main entry point for the CLI. It sets up
// global flags, configures logging verbosity, and registers all
// subcommands.
//
// Returns:
//   - A configured cobra.Command ready for execution
func NewUnetbenchCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   cliName,
		Short: cliDescription,
		Long: `unetbench benchmarks 2D/3D U-Net segmentation training across CPU,
CUDA and XPU devices.

It sweeps model names and batch sizes, pins each parallel training instance
to a disjoint core/NUMA partition or device, launches the instances
concurrently and collects their logs. The training program itself is
external; unetbench only orchestrates it.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(opts.Verbose)
		},
	}

	// Add global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "",
		"sweep configuration YAML file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"verbose output")

	// Add subcommands
	cmd.AddCommand(
		NewRunCommand(opts),
		NewPlanCommand(opts),
		NewDeviceCommand(opts),
		NewCollectCommand(opts),
		NewCleanCommand(opts),
		NewVersionCommand(opts),
	)

	return cmd
}
