package device

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeSysfs lays out a minimal /sys/devices/system tree with the given
// per-node cpulists and optional SMT sibling files.
func writeFakeSysfs(t *testing.T, nodes map[int]string, siblings map[int]string) string {
	t.Helper()
	root := t.TempDir()

	for id, cpulist := range nodes {
		dir := filepath.Join(root, "node", "node"+strconv.Itoa(id))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cpulist"), []byte(cpulist+"\n"), 0o644))
	}
	for cpu, list := range siblings {
		dir := filepath.Join(root, "cpu", "cpu"+strconv.Itoa(cpu), "topology")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "thread_siblings_list"), []byte(list+"\n"), 0o644))
	}
	return root
}

func TestParseCPUList(t *testing.T) {
	tests := []struct {
		input   string
		want    []int
		wantErr bool
	}{
		{input: "", want: nil},
		{input: "0", want: []int{0}},
		{input: "0-3", want: []int{0, 1, 2, 3}},
		{input: "0-2,8,10-11", want: []int{0, 1, 2, 8, 10, 11}},
		{input: "3-1", wantErr: true},
		{input: "a-b", wantErr: true},
		{input: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCPUList(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadTopology(t *testing.T) {
	root := writeFakeSysfs(t,
		map[int]string{0: "0-3", 1: "4-7"},
		nil)

	topo, err := readTopology(root)
	require.NoError(t, err)
	require.Len(t, topo.Nodes, 2)

	assert.Equal(t, 0, topo.Nodes[0].ID)
	assert.Equal(t, []int{0, 1, 2, 3}, topo.Nodes[0].Cores)
	assert.Equal(t, 1, topo.Nodes[1].ID)
	assert.Equal(t, []int{4, 5, 6, 7}, topo.Nodes[1].Cores)
	assert.Equal(t, 8, topo.TotalCores())
}

func TestReadTopologyFiltersSMTSiblings(t *testing.T) {
	// CPUs 0-3 are two physical cores with SMT: 0/2 and 1/3 are sibling
	// pairs. Only the first CPU of each pair survives.
	root := writeFakeSysfs(t,
		map[int]string{0: "0-3"},
		map[int]string{
			0: "0,2",
			1: "1,3",
			2: "0,2",
			3: "1,3",
		})

	topo, err := readTopology(root)
	require.NoError(t, err)
	require.Len(t, topo.Nodes, 1)
	assert.Equal(t, []int{0, 1}, topo.Nodes[0].Cores)
}

func TestReadTopologyMissingTree(t *testing.T) {
	_, err := readTopology(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
