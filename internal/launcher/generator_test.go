package launcher

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oobench/unetbench/internal/api"
)

func testTrainParams() TrainParams {
	return TrainParams{
		Entrypoint:   []string{"python", "main.py"},
		ConfigPath:   "resources/3DUnet_confocal_boundary/train_config.yaml",
		BatchSize:    2,
		NumIter:      200,
		NumWarmup:    20,
		ChannelsLast: 1,
		Precision:    "float32",
	}
}

func TestTrainParamsArgv(t *testing.T) {
	params := testTrainParams()
	params.ExtraArgs = []string{"--profile"}

	argv := params.Argv(api.DeviceCPU)
	assert.Equal(t, []string{
		"python", "main.py",
		"--config", "resources/3DUnet_confocal_boundary/train_config.yaml",
		"--batch_size", "2",
		"--device", "cpu",
		"--num_iter", "200",
		"--num_warmup", "20",
		"--channels_last", "1",
		"--precision", "float32",
		"--profile",
	}, argv)
}

func TestBuildCommandsCPUAffinity(t *testing.T) {
	spec := Spec{
		Device:      api.DeviceCPU,
		Instances:   2,
		Assignments: []api.Assignment{"0,1;0", "2,3;1"},
		LogDir:      "logs",
		Train:       testTrainParams(),
	}

	cmds := spec.BuildCommands()
	require.Len(t, cmds, 2)

	assert.Equal(t, []string{"numactl", "-m", "0", "-C", "0,1"}, cmds[0].Prefix)
	assert.Equal(t, []string{"numactl", "-m", "1", "-C", "2,3"}, cmds[1].Prefix)
	assert.Empty(t, cmds[0].Env)
	assert.Equal(t, filepath.Join("logs", "rcpi2-ins0.log"), cmds[0].LogPath)
	assert.Equal(t, filepath.Join("logs", "rcpi2-ins1.log"), cmds[1].LogPath)
}

func TestBuildCommandsCUDAAffinity(t *testing.T) {
	spec := Spec{
		Device:      api.DeviceCUDA,
		Instances:   2,
		Assignments: []api.Assignment{"0", "1"},
		LogDir:      "logs",
		Train:       testTrainParams(),
	}

	cmds := spec.BuildCommands()
	require.Len(t, cmds, 2)

	assert.Empty(t, cmds[0].Prefix)
	assert.Equal(t, []string{"CUDA_VISIBLE_DEVICES=0"}, cmds[0].Env)
	assert.Equal(t, []string{"CUDA_VISIBLE_DEVICES=1"}, cmds[1].Env)
}

func TestBuildCommandsXPUAffinity(t *testing.T) {
	spec := Spec{
		Device:      api.DeviceXPU,
		Instances:   3,
		Assignments: make([]api.Assignment, 3),
		LogDir:      "logs",
		Train:       testTrainParams(),
	}

	cmds := spec.BuildCommands()
	require.Len(t, cmds, 3)

	for i, cmd := range cmds {
		assert.Empty(t, cmd.Prefix)
		assert.Equal(t, []string{"ZE_AFFINITY_MASK=" + strconv.Itoa(i)}, cmd.Env)
	}
}

func TestBuildCommandsUnknownDeviceNoPrefix(t *testing.T) {
	spec := Spec{
		Device:      api.DeviceKind("tpu"),
		Instances:   2,
		Assignments: []api.Assignment{"0", "1"},
		LogDir:      "logs",
		Train:       testTrainParams(),
	}

	cmds := spec.BuildCommands()
	require.Len(t, cmds, 2)
	for _, cmd := range cmds {
		assert.Empty(t, cmd.Prefix)
		assert.Empty(t, cmd.Env)
	}
}

func TestBuildCommandsSingleNodeOverride(t *testing.T) {
	spec := Spec{
		Device:       api.DeviceCPU,
		Instances:    4,
		Assignments:  []api.Assignment{"0-55;0", "1;0", "2;0", "3;0"},
		NUMANodesUse: SingleNodeOverride,
		LogDir:       "logs",
		Train:        testTrainParams(),
	}

	cmds := spec.BuildCommands()
	require.Len(t, cmds, 1)
	assert.Equal(t, 0, cmds[0].Index)
}

func TestBuildCommandsMissingAssignmentEntries(t *testing.T) {
	// Entries past the assignment table become empty descriptors; the
	// resulting malformed prefix is the training process's problem.
	spec := Spec{
		Device:      api.DeviceCPU,
		Instances:   2,
		Assignments: []api.Assignment{"0,1;0"},
		LogDir:      "logs",
		Train:       testTrainParams(),
	}

	cmds := spec.BuildCommands()
	require.Len(t, cmds, 2)
	assert.Equal(t, []string{"numactl", "-m", "", "-C", ""}, cmds[1].Prefix)
	assert.Equal(t, filepath.Join("logs", "rcpi0-ins1.log"), cmds[1].LogPath)
}

func TestShellLine(t *testing.T) {
	cmd := InstanceCommand{
		Index:   0,
		Env:     []string{"CUDA_VISIBLE_DEVICES=0"},
		Argv:    []string{"python", "main.py", "--device", "cuda"},
		LogPath: "logs/rcpi1-ins0.log",
	}

	line := cmd.ShellLine()
	assert.Equal(t,
		"CUDA_VISIBLE_DEVICES=0 python main.py --device cuda > logs/rcpi1-ins0.log 2>&1 &",
		line)
}

func TestWriteCommandFileStructure(t *testing.T) {
	tests := []struct {
		name         string
		instances    int
		numaNodesUse string
		wantLaunches int
	}{
		{name: "two instances", instances: 2, wantLaunches: 2},
		{name: "four instances", instances: 4, wantLaunches: 4},
		{name: "single node override", instances: 4, numaNodesUse: "0", wantLaunches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assignments := make([]api.Assignment, tt.instances)
			for i := range assignments {
				assignments[i] = api.Assignment("0,1;0")
			}
			spec := Spec{
				Device:       api.DeviceCPU,
				Instances:    tt.instances,
				Assignments:  assignments,
				NUMANodesUse: tt.numaNodesUse,
				LogDir:       "logs",
				Train:        testTrainParams(),
			}

			path := filepath.Join(t.TempDir(), "launch.sh")
			require.NoError(t, WriteCommandFile(path, spec.BuildCommands()))

			data, err := os.ReadFile(path)
			require.NoError(t, err)

			lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
			launches := 0
			waits := 0
			for _, line := range lines {
				if strings.HasSuffix(line, "&") {
					launches++
				}
				if line == "wait" {
					waits++
				}
			}
			assert.Equal(t, tt.wantLaunches, launches)
			assert.Equal(t, 1, waits)
			assert.Equal(t, "wait", lines[len(lines)-1], "wait must be the trailing line")

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.NotZero(t, info.Mode()&0o100, "command file must be executable")
		})
	}
}

func TestGeneratorTwoInstanceCPUCommandFile(t *testing.T) {
	spec := Spec{
		Device:      api.DeviceCPU,
		Instances:   2,
		Assignments: []api.Assignment{"0,1;0", "2,3;1"},
		LogDir:      "logs",
		Train:       testTrainParams(),
	}

	path := filepath.Join(t.TempDir(), "launch.sh")
	require.NoError(t, WriteCommandFile(path, spec.BuildCommands()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "numactl -m 0 -C 0,1")
	assert.Contains(t, content, "numactl -m 1 -C 2,3")
	assert.True(t, strings.HasSuffix(content, "wait\n"))
}
