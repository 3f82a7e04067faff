package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oobench/unetbench/internal/api"
	"github.com/oobench/unetbench/internal/logger"
)

// Options controls how instance assignments are built.
type Options struct {
	// Instances is the number of parallel training processes to assign
	// resources to. Must be positive.
	Instances int

	// CoresPerInstance fixes the cores per CPU instance.
	// Zero divides the selected cores evenly.
	CoresPerInstance int

	// NUMANodesUse restricts CPU assignments to a comma-separated list of
	// NUMA node IDs. Empty selects all nodes.
	NUMANodesUse string
}

// Assignments builds the ordered per-instance resource descriptor table for
// a device kind.
//
// The returned slice always has Instances entries. CPU entries carry
// disjoint core partitions; CUDA entries carry one distinct device index
// per instance, erroring when instances outnumber the visible devices; XPU
// entries are empty because the instance index itself is the affinity
// mask. Unknown device kinds also yield empty entries so the launcher
// emits no affinity prefix for them.
//
// Parameters:
//   - kind: Target device kind
//   - opts: Assignment options
//
// Returns:
//   - Ordered assignment table, one entry per instance
//   - Error if discovery fails or resources cannot cover the instances
func Assignments(kind api.DeviceKind, opts Options) ([]api.Assignment, error) {
	if opts.Instances < 1 {
		return nil, fmt.Errorf("instance count must be positive, got %d", opts.Instances)
	}

	switch kind {
	case api.DeviceCPU:
		topo, err := DiscoverTopology()
		if err != nil {
			return nil, err
		}
		return topo.CPUAssignments(opts)

	case api.DeviceCUDA:
		devices, err := CUDADevices()
		if err != nil {
			return nil, err
		}
		if opts.Instances > len(devices) {
			return nil, fmt.Errorf("%d instances exceed %d visible CUDA device(s)",
				opts.Instances, len(devices))
		}
		assignments := make([]api.Assignment, opts.Instances)
		for i := range assignments {
			assignments[i] = api.Assignment(devices[i])
		}
		return assignments, nil

	default:
		// xpu uses the instance index as the mask; other kinds get no
		// affinity at all. Either way the table itself is empty.
		return make([]api.Assignment, opts.Instances), nil
	}
}

// CPUAssignments partitions the topology's cores into one disjoint
// "<core_list>;<numa_node>" descriptor per instance.
//
// Instances are spread across the selected NUMA nodes as evenly as
// possible; each node's cores are then divided among the instances placed
// on it. A fixed CoresPerInstance takes the leading cores of each slot
// instead of the even share.
func (t *Topology) CPUAssignments(opts Options) ([]api.Assignment, error) {
	nodes, err := t.selectNodes(opts.NUMANodesUse)
	if err != nil {
		return nil, err
	}

	// Spread instances across nodes, extra instances on the leading nodes.
	perNode := make([]int, len(nodes))
	for i := 0; i < opts.Instances; i++ {
		perNode[i%len(nodes)]++
	}

	var assignments []api.Assignment
	for j, node := range nodes {
		slots := perNode[j]
		if slots == 0 {
			continue
		}

		share := len(node.Cores) / slots
		if opts.CoresPerInstance > 0 {
			share = opts.CoresPerInstance
		}
		if share == 0 {
			return nil, fmt.Errorf("node %d has %d cores for %d instances",
				node.ID, len(node.Cores), slots)
		}
		if share*slots > len(node.Cores) {
			return nil, fmt.Errorf("node %d cannot fit %d instances of %d cores (%d available)",
				node.ID, slots, share, len(node.Cores))
		}

		for slot := 0; slot < slots; slot++ {
			cores := node.Cores[slot*share : (slot+1)*share]
			assignments = append(assignments, api.Assignment(
				joinCores(cores)+";"+strconv.Itoa(node.ID)))
		}
	}

	// Re-interleave so instance i sits on node i % len(nodes), matching
	// the round-robin spread above.
	ordered := interleaveByNode(assignments, perNode)

	logger.Debug("CPU assignments for %d instance(s): %v", opts.Instances, ordered)
	return ordered, nil
}

// selectNodes resolves a NUMANodesUse filter against the topology.
func (t *Topology) selectNodes(nodesUse string) ([]NUMANode, error) {
	if nodesUse == "" {
		return t.Nodes, nil
	}

	byID := make(map[int]NUMANode, len(t.Nodes))
	for _, node := range t.Nodes {
		byID[node.ID] = node
	}

	var nodes []NUMANode
	for _, part := range strings.Split(nodesUse, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid NUMA node filter %q: %w", nodesUse, err)
		}
		node, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("NUMA node %d not present on this host", id)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// interleaveByNode reorders node-grouped assignments into round-robin
// instance order. perNode holds the number of slots each node received;
// the grouped slice is laid out node by node.
func interleaveByNode(grouped []api.Assignment, perNode []int) []api.Assignment {
	offsets := make([]int, len(perNode))
	for j := 1; j < len(perNode); j++ {
		offsets[j] = offsets[j-1] + perNode[j-1]
	}

	taken := make([]int, len(perNode))
	ordered := make([]api.Assignment, 0, len(grouped))
	for len(ordered) < len(grouped) {
		for j := range perNode {
			if taken[j] < perNode[j] {
				ordered = append(ordered, grouped[offsets[j]+taken[j]])
				taken[j]++
				if len(ordered) == len(grouped) {
					break
				}
			}
		}
	}
	return ordered
}

// joinCores renders core IDs as the comma-separated list numactl expects.
func joinCores(cores []int) string {
	parts := make([]string, len(cores))
	for i, core := range cores {
		parts[i] = strconv.Itoa(core)
	}
	return strings.Join(parts, ",")
}
