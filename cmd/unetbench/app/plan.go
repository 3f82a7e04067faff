package app

import (
	"github.com/spf13/cobra"
)

// NewPlanCommand creates the plan command.
//
// The plan command is the dry-run counterpart of run: it builds the
// resource assignments and persists the per-combination command files
// without launching anything, so a sweep can be inspected (or executed by
// hand) before committing machine time.
func NewPlanCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &SweepOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate launch command files without executing",
		Long: `Generate the per-combination launch command files without executing them.

Each command file contains one backgrounded launch line per instance,
scoped to its resource partition, followed by a single wait. The files are
written under the log directory exactly as run would write them.`,
		Example: `  # Inspect what a 4-instance CPU sweep would launch
  unetbench plan --model unet3d --batch-size 1,2 --instance 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.buildConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runSweep(cfg, false)
		},
	}

	addSweepFlags(cmd, opts)
	return cmd
}
