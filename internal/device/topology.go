// Package device provides compute resource discovery and partitioning.
//
// This package discovers the resources a benchmark sweep can pin training
// instances to:
//   - CPU cores grouped by NUMA node, read from sysfs
//   - NVIDIA GPU indices, read from procfs or CUDA_VISIBLE_DEVICES
//   - XPU accelerator slots, selected by instance index
//
// Discovery results are turned into per-instance api.Assignment descriptors
// whose resource partitions are disjoint by construction. The launcher
// consumes the descriptors without further validation.
package device

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// defaultSysRoot is the sysfs subtree holding CPU and NUMA topology.
// Tests substitute a fake tree via readTopology.
const defaultSysRoot = "/sys/devices/system"

// NUMANode describes one NUMA node and the physical cores it owns.
type NUMANode struct {
	// ID is the node number as named in sysfs (node0, node1, ...).
	ID int

	// Cores lists the node's physical core IDs in ascending order.
	// SMT siblings are filtered out so pinning never splits a core.
	Cores []int
}

// Topology is the discovered CPU layout of the host.
type Topology struct {
	Nodes []NUMANode
}

// DiscoverTopology reads the host CPU topology from sysfs.
//
// Returns:
//   - The discovered topology with one entry per NUMA node
//   - Error if the sysfs topology tree is unreadable
func DiscoverTopology() (*Topology, error) {
	return readTopology(defaultSysRoot)
}

// readTopology reads the topology from an explicit sysfs-style root.
// The root must contain "node/node<N>/cpulist" and, optionally,
// "cpu/cpu<N>/topology/thread_siblings_list" entries.
func readTopology(sysRoot string) (*Topology, error) {
	nodeDir := filepath.Join(sysRoot, "node")
	entries, err := os.ReadDir(nodeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read NUMA topology: %w", err)
	}

	topo := &Topology{}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "node") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(name, "node"))
		if err != nil {
			continue
		}

		cpulist, err := os.ReadFile(filepath.Join(nodeDir, name, "cpulist"))
		if err != nil {
			// Nodes without a cpulist (memory-only nodes) are skipped.
			continue
		}
		cpus, err := ParseCPUList(strings.TrimSpace(string(cpulist)))
		if err != nil {
			return nil, fmt.Errorf("failed to parse cpulist of %s: %w", name, err)
		}

		topo.Nodes = append(topo.Nodes, NUMANode{
			ID:    id,
			Cores: filterSiblings(sysRoot, cpus),
		})
	}

	sort.Slice(topo.Nodes, func(i, j int) bool {
		return topo.Nodes[i].ID < topo.Nodes[j].ID
	})

	if len(topo.Nodes) == 0 {
		return nil, fmt.Errorf("no NUMA nodes found under %s", nodeDir)
	}
	return topo, nil
}

// filterSiblings drops SMT sibling CPUs, keeping only the first CPU of each
// physical core. When sibling information is unavailable every CPU is kept.
func filterSiblings(sysRoot string, cpus []int) []int {
	var cores []int
	for _, cpu := range cpus {
		siblings := filepath.Join(sysRoot, "cpu",
			fmt.Sprintf("cpu%d", cpu), "topology", "thread_siblings_list")
		data, err := os.ReadFile(siblings)
		if err != nil {
			cores = append(cores, cpu)
			continue
		}
		list, err := ParseCPUList(strings.TrimSpace(string(data)))
		if err != nil || len(list) == 0 || list[0] == cpu {
			cores = append(cores, cpu)
		}
	}
	return cores
}

// ParseCPUList parses a kernel cpulist string such as "0-3,8,10-11" into
// the expanded, ascending slice of CPU IDs.
//
// Parameters:
//   - s: The cpulist string; empty input yields an empty slice
//
// Returns:
//   - Expanded CPU IDs
//   - Error on malformed ranges
func ParseCPUList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}

	var cpus []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(lo)
			if err != nil {
				return nil, fmt.Errorf("invalid cpulist range %q: %w", part, err)
			}
			end, err := strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("invalid cpulist range %q: %w", part, err)
			}
			if end < start {
				return nil, fmt.Errorf("invalid cpulist range %q: end before start", part)
			}
			for cpu := start; cpu <= end; cpu++ {
				cpus = append(cpus, cpu)
			}
			continue
		}
		cpu, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid cpulist entry %q: %w", part, err)
		}
		cpus = append(cpus, cpu)
	}

	sort.Ints(cpus)
	return cpus, nil
}

// TotalCores returns the number of physical cores across all nodes.
func (t *Topology) TotalCores() int {
	total := 0
	for _, node := range t.Nodes {
		total += len(node.Cores)
	}
	return total
}
