package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oobench/unetbench/internal/api"
	"github.com/oobench/unetbench/internal/bench"
	"github.com/oobench/unetbench/internal/config"
)

// SweepOptions holds the sweep parameters shared by the run and plan
// commands. Flags override the corresponding fields of the configuration
// file when explicitly set.
type SweepOptions struct {
	*GlobalOptions

	// Models lists the model names to sweep
	Models []string

	// BatchSizes lists the per-instance batch sizes to sweep
	BatchSizes []int

	// Device is the target device kind (cpu, cuda, xpu)
	Device string

	// Instances is the number of parallel training processes
	Instances int

	// NUMANodes restricts CPU runs to specific NUMA nodes; the literal
	// "0" switches to a single combined run
	NUMANodes string

	// CoresPerInstance fixes the cores per CPU instance (0 = even split)
	CoresPerInstance int

	// NumIter is the number of measured iterations
	NumIter int

	// NumWarmup is the number of warmup iterations
	NumWarmup int

	// Precision is the training precision flag value
	Precision string

	// ChannelsLast selects NHWC (1) or NCHW (0) memory format
	ChannelsLast int

	// ExtraArgs are appended verbatim to every training invocation
	ExtraArgs []string

	// DatasetDir is the shared dataset root
	DatasetDir string

	// LogDir is where logs and command files are written
	LogDir string

	// Container launches instances in Docker containers
	Container bool

	// Image is the container image for container mode
	Image string
}

// NewRunCommand creates the run command.
//
// The run command executes the full sweep: for every (model, batch size)
// combination it builds disjoint resource assignments, persists the launch
// command file, starts all instances concurrently and blocks until they
// complete before moving to the next combination.
//
// Usage:
//
//	unetbench run [--config sweep.yaml] [flags]
func NewRunCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &SweepOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a benchmark sweep",
		Long: `Execute the configured benchmark sweep.

Each (model, batch size) combination launches the configured number of
training instances concurrently, each pinned to a disjoint resource
partition. Combinations run strictly sequentially. Per-instance logs and
the generated command file are written under the log directory.`,
		Example: `  # Sweep unet3d over two batch sizes with 4 CPU instances
  unetbench run --model unet3d --batch-size 1,2 --device cpu --instance 4

  # Single combined run on NUMA node 0
  unetbench run --model unet3d --batch-size 1 --numa-nodes 0

  # GPU sweep
  unetbench run --model unet2d --batch-size 8 --device cuda --instance 2

  # From a sweep configuration file
  unetbench run --config sweep.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.buildConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runSweep(cfg, true)
		},
	}

	addSweepFlags(cmd, opts)
	return cmd
}

// addSweepFlags registers the sweep parameter flags shared by run and plan.
func addSweepFlags(cmd *cobra.Command, opts *SweepOptions) {
	flags := cmd.Flags()
	flags.StringSliceVar(&opts.Models, "model", nil, "model names to sweep (unet2d, unet3d)")
	flags.IntSliceVar(&opts.BatchSizes, "batch-size", nil, "batch sizes to sweep")
	flags.StringVar(&opts.Device, "device", "", "device kind: cpu, cuda or xpu")
	flags.IntVar(&opts.Instances, "instance", 0, "parallel training instances per combination")
	flags.StringVar(&opts.NUMANodes, "numa-nodes", "", `NUMA nodes to use; "0" forces a single combined run`)
	flags.IntVar(&opts.CoresPerInstance, "cores-per-instance", 0, "cores per CPU instance (0 = even split)")
	flags.IntVar(&opts.NumIter, "num-iter", 0, "measured training iterations")
	flags.IntVar(&opts.NumWarmup, "num-warmup", 0, "warmup iterations")
	flags.StringVar(&opts.Precision, "precision", "", "training precision (float32, bfloat16, float16)")
	flags.IntVar(&opts.ChannelsLast, "channels-last", config.DefaultChannelsLast, "use NHWC memory format (1) or NCHW (0)")
	flags.StringSliceVar(&opts.ExtraArgs, "extra-args", nil, "extra arguments appended to the training invocation")
	flags.StringVar(&opts.DatasetDir, "dataset-dir", "", "shared dataset root directory")
	flags.StringVar(&opts.LogDir, "log-dir", "", "directory for logs and command files")
	flags.BoolVar(&opts.Container, "container", false, "launch instances in Docker containers")
	flags.StringVar(&opts.Image, "image", "", "container image (container mode)")
}

// buildConfig loads the configuration file (or defaults) and overrides the
// fields whose flags were explicitly set on the command line.
func (o *SweepOptions) buildConfig(flags *pflag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if flags.Changed("model") {
		cfg.Models = o.Models
	}
	if flags.Changed("batch-size") {
		cfg.BatchSizes = o.BatchSizes
	}
	if flags.Changed("device") {
		cfg.Device = api.DeviceKind(o.Device)
	}
	if flags.Changed("instance") {
		cfg.Instances = o.Instances
	}
	if flags.Changed("numa-nodes") {
		cfg.NUMANodesUse = o.NUMANodes
	}
	if flags.Changed("cores-per-instance") {
		cfg.CoresPerInstance = o.CoresPerInstance
	}
	if flags.Changed("num-iter") {
		cfg.NumIter = o.NumIter
	}
	if flags.Changed("num-warmup") {
		cfg.NumWarmup = o.NumWarmup
	}
	if flags.Changed("precision") {
		cfg.Precision = o.Precision
	}
	if flags.Changed("channels-last") {
		cfg.ChannelsLast = &o.ChannelsLast
	}
	if flags.Changed("extra-args") {
		cfg.ExtraArgs = o.ExtraArgs
	}
	if flags.Changed("dataset-dir") {
		cfg.DatasetDir = o.DatasetDir
	}
	if flags.Changed("log-dir") {
		cfg.LogDir = o.LogDir
	}
	if flags.Changed("container") {
		cfg.Container.Enabled = o.Container
	}
	if flags.Changed("image") {
		cfg.Container.Image = o.Image
	}

	return cfg, nil
}

// runSweep builds and executes (or plans) a sweep, wiring SIGINT/SIGTERM
// into context cancellation so a sweep can be aborted between and within
// combinations.
func runSweep(cfg *config.Config, execute bool) error {
	sweep, err := bench.NewSweep(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if execute {
		return sweep.Run(ctx)
	}
	return sweep.Plan(ctx)
}
