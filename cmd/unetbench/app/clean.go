package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oobench/unetbench/internal/config"
	"github.com/oobench/unetbench/internal/logger"
)

// NewCleanCommand creates the clean command.
//
// The clean command removes the logs and command files of previous sweep
// runs so a fresh sweep starts from an empty log directory.
func NewCleanCommand(globalOpts *GlobalOptions) *cobra.Command {
	var logDir string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove logs and command files of previous runs",
		Args:  cobra.NoArgs,
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

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				logger.Info("log directory %s does not exist, nothing to clean", dir)
				return nil
			}
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("failed to clean log directory: %w", err)
			}
			logger.Info("removed %s", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&logDir, "log-dir", config.DefaultLogDirName,
		"log directory to clean")

	return cmd
}
