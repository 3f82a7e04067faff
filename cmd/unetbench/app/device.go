package app

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oobench/unetbench/internal/api"
	"github.com/oobench/unetbench/internal/device"
)

// NewDeviceCommand creates the device command for resource inspection.
//
// The device command provides subcommands for inspecting the compute
// resources a sweep can pin instances to.
//
// Usage:
//
//	unetbench device numa          # Show CPU/NUMA topology
//	unetbench device cuda          # List visible CUDA devices
//	unetbench device assign        # Preview instance assignments
func NewDeviceCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Inspect compute resources and instance assignments",
		Long: `Inspect the CPU topology and accelerator devices available on this host,
and preview how a given instance count would be partitioned across them.`,
	}

	cmd.AddCommand(
		newDeviceNumaCommand(),
		newDeviceCudaCommand(),
		newDeviceAssignCommand(),
	)

	return cmd
}

// newDeviceNumaCommand creates the 'device numa' subcommand
func newDeviceNumaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "numa",
		Short: "Show CPU/NUMA topology",
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := device.DiscoverTopology()
			if err != nil {
				return fmt.Errorf("failed to discover topology: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NODE\tCORES\tCORE IDS")
			for _, node := range topo.Nodes {
				fmt.Fprintf(w, "%d\t%d\t%v\n", node.ID, len(node.Cores), node.Cores)
			}
			w.Flush()

			fmt.Printf("\nTotal: %d physical core(s) on %d node(s)\n",
				topo.TotalCores(), len(topo.Nodes))
			return nil
		},
	}
}

// newDeviceCudaCommand creates the 'device cuda' subcommand
func newDeviceCudaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cuda",
		Short: "List visible CUDA devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := device.CUDADevices()
			if err != nil {
				return err
			}
			for _, d := range devices {
				fmt.Println(d)
			}
			fmt.Printf("\nTotal: %d CUDA device(s)\n", len(devices))
			return nil
		},
	}
}

// newDeviceAssignCommand creates the 'device assign' subcommand
func newDeviceAssignCommand() *cobra.Command {
	var (
		kind      string
		instances int
		cores     int
		numaNodes string
	)

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Preview per-instance resource assignments",
		Long: `Preview the per-instance resource descriptors a sweep would use.

CPU descriptors have the form "<core_list>;<numa_node>"; CUDA descriptors
are device indices; XPU instances use their index as the affinity mask.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments, err := device.Assignments(api.DeviceKind(kind), device.Options{
				Instances:        instances,
				CoresPerInstance: cores,
				NUMANodesUse:     numaNodes,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INSTANCE\tASSIGNMENT")
			for i, a := range assignments {
				fmt.Fprintf(w, "%d\t%q\n", i, string(a))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "device", "cpu", "device kind: cpu, cuda or xpu")
	cmd.Flags().IntVar(&instances, "instance", 1, "instance count")
	cmd.Flags().IntVar(&cores, "cores-per-instance", 0, "cores per CPU instance (0 = even split)")
	cmd.Flags().StringVar(&numaNodes, "numa-nodes", "", "NUMA nodes to use")

	return cmd
}
