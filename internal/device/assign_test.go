package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oobench/unetbench/internal/api"
)

func twoNodeTopology() *Topology {
	return &Topology{Nodes: []NUMANode{
		{ID: 0, Cores: []int{0, 1, 2, 3}},
		{ID: 1, Cores: []int{4, 5, 6, 7}},
	}}
}

func TestCPUAssignmentsEvenSplit(t *testing.T) {
	topo := twoNodeTopology()

	assignments, err := topo.CPUAssignments(Options{Instances: 2})
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	assert.Equal(t, api.Assignment("0,1,2,3;0"), assignments[0])
	assert.Equal(t, api.Assignment("4,5,6,7;1"), assignments[1])
}

func TestCPUAssignmentsMultiplePerNode(t *testing.T) {
	topo := twoNodeTopology()

	assignments, err := topo.CPUAssignments(Options{Instances: 4})
	require.NoError(t, err)
	require.Len(t, assignments, 4)

	// Round-robin across nodes, two slots per node.
	assert.Equal(t, api.Assignment("0,1;0"), assignments[0])
	assert.Equal(t, api.Assignment("4,5;1"), assignments[1])
	assert.Equal(t, api.Assignment("2,3;0"), assignments[2])
	assert.Equal(t, api.Assignment("6,7;1"), assignments[3])
}

func TestCPUAssignmentsDisjoint(t *testing.T) {
	topo := &Topology{Nodes: []NUMANode{
		{ID: 0, Cores: []int{0, 1, 2, 3, 4, 5}},
		{ID: 1, Cores: []int{6, 7, 8, 9, 10, 11}},
	}}

	assignments, err := topo.CPUAssignments(Options{Instances: 3})
	require.NoError(t, err)
	require.Len(t, assignments, 3)

	seen := map[string]int{}
	for i, a := range assignments {
		for _, core := range strings.Split(a.CoreList(), ",") {
			prev, dup := seen[core]
			assert.False(t, dup, "core %s assigned to both instance %d and %d", core, prev, i)
			seen[core] = i
		}
	}
}

func TestCPUAssignmentsFixedCoresPerInstance(t *testing.T) {
	topo := twoNodeTopology()

	assignments, err := topo.CPUAssignments(Options{Instances: 2, CoresPerInstance: 2})
	require.NoError(t, err)

	assert.Equal(t, api.Assignment("0,1;0"), assignments[0])
	assert.Equal(t, api.Assignment("4,5;1"), assignments[1])
	assert.Equal(t, 2, assignments[0].CoreCount())
}

func TestCPUAssignmentsNodeFilter(t *testing.T) {
	topo := twoNodeTopology()

	assignments, err := topo.CPUAssignments(Options{Instances: 2, NUMANodesUse: "1"})
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	for _, a := range assignments {
		assert.Equal(t, "1", a.NUMANode())
	}
}

func TestCPUAssignmentsErrors(t *testing.T) {
	topo := twoNodeTopology()

	_, err := topo.CPUAssignments(Options{Instances: 10})
	require.Error(t, err, "more instances than cores on a node")

	_, err = topo.CPUAssignments(Options{Instances: 2, CoresPerInstance: 16})
	require.Error(t, err, "fixed share exceeding node capacity")

	_, err = topo.CPUAssignments(Options{Instances: 1, NUMANodesUse: "9"})
	require.Error(t, err, "unknown NUMA node")

	_, err = topo.CPUAssignments(Options{Instances: 1, NUMANodesUse: "zero"})
	require.Error(t, err, "malformed node filter")
}

func TestAssignmentsCUDADistinctDevices(t *testing.T) {
	t.Setenv("CUDA_VISIBLE_DEVICES", "0,1,2")

	assignments, err := Assignments(api.DeviceCUDA, Options{Instances: 2})
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	assert.Equal(t, api.Assignment("0"), assignments[0])
	assert.Equal(t, api.Assignment("1"), assignments[1])

	// No device may serve two instances.
	seen := map[api.Assignment]int{}
	for i, a := range assignments {
		prev, dup := seen[a]
		assert.False(t, dup, "device %s assigned to both instance %d and %d", a, prev, i)
		seen[a] = i
	}
}

func TestAssignmentsCUDAInsufficientDevices(t *testing.T) {
	t.Setenv("CUDA_VISIBLE_DEVICES", "0,1")

	_, err := Assignments(api.DeviceCUDA, Options{Instances: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceed 2 visible CUDA device(s)")
}

func TestAssignmentsXPUEmptyDescriptors(t *testing.T) {
	assignments, err := Assignments(api.DeviceXPU, Options{Instances: 2})
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	for _, a := range assignments {
		assert.Empty(t, string(a))
	}
}

func TestAssignmentsRejectsNonPositiveInstances(t *testing.T) {
	_, err := Assignments(api.DeviceCPU, Options{Instances: 0})
	require.Error(t, err)
}

func TestCUDADevicesFromEnv(t *testing.T) {
	t.Setenv("CUDA_VISIBLE_DEVICES", "2, 3")

	devices, err := CUDADevices()
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, devices)
}
