package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oobench/unetbench/internal/bench"
	"github.com/oobench/unetbench/internal/config"
)

// NewCollectCommand creates the collect command.
//
// The collect command parses the per-instance logs of previous sweep runs
// and prints a throughput/latency report, with per-combination throughput
// summed across instances.
func NewCollectCommand(globalOpts *GlobalOptions) *cobra.Command {
	var logDir string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect and summarize benchmark logs",
		Long: `Parse the per-instance logs under the log directory and print a
performance summary. Logs without a performance summary line (crashed or
interrupted instances) are skipped with a warning.`,
		Example: `  # Summarize the default log directory
  unetbench collect

  # Summarize a specific sweep's logs
  unetbench collect --log-dir /data/unetbench-logs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := logDir
			if globalOpts.ConfigPath != "" {
				cfg, err := config.Load(globalOpts.ConfigPath)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("log-dir") {
					dir = cfg.LogDir
				}
			}

			results, err := bench.Collect(dir)
			if err != nil {
				return err
			}
			bench.Report(os.Stdout, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&logDir, "log-dir", config.DefaultLogDirName,
		"log directory to collect from")

	return cmd
}
