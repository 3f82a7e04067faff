package launcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessLauncherRunsAllInstances(t *testing.T) {
	logDir := t.TempDir()

	cmds := []InstanceCommand{
		{
			Index:   0,
			Argv:    []string{"sh", "-c", "echo instance zero"},
			LogPath: filepath.Join(logDir, LogName(1, 0)),
		},
		{
			Index:   1,
			Argv:    []string{"sh", "-c", "echo instance one"},
			LogPath: filepath.Join(logDir, LogName(1, 1)),
		},
	}

	require.NoError(t, ProcessLauncher{}.Launch(context.Background(), cmds))

	data, err := os.ReadFile(cmds[0].LogPath)
	require.NoError(t, err)
	assert.Equal(t, "instance zero\n", string(data))

	data, err = os.ReadFile(cmds[1].LogPath)
	require.NoError(t, err)
	assert.Equal(t, "instance one\n", string(data))
}

func TestProcessLauncherCombinesStderr(t *testing.T) {
	logDir := t.TempDir()

	cmds := []InstanceCommand{{
		Index:   0,
		Argv:    []string{"sh", "-c", "echo out; echo err 1>&2"},
		LogPath: filepath.Join(logDir, LogName(1, 0)),
	}}

	require.NoError(t, ProcessLauncher{}.Launch(context.Background(), cmds))

	data, err := os.ReadFile(cmds[0].LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "out")
	assert.Contains(t, string(data), "err")
}

func TestProcessLauncherSiblingsRunToCompletion(t *testing.T) {
	logDir := t.TempDir()
	marker := filepath.Join(logDir, "sibling-ran")

	cmds := []InstanceCommand{
		{
			Index:   0,
			Argv:    []string{"sh", "-c", "exit 3"},
			LogPath: filepath.Join(logDir, LogName(1, 0)),
		},
		{
			Index:   1,
			Argv:    []string{"sh", "-c", "sleep 0.1; touch " + marker},
			LogPath: filepath.Join(logDir, LogName(1, 1)),
		},
	}

	err := ProcessLauncher{}.Launch(context.Background(), cmds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance 0")

	// The failing instance must not cancel its sibling.
	_, statErr := os.Stat(marker)
	assert.NoError(t, statErr)
}

func TestProcessLauncherAppliesEnvAndDir(t *testing.T) {
	logDir := t.TempDir()
	workDir := t.TempDir()

	cmds := []InstanceCommand{{
		Index:   0,
		Env:     []string{"ZE_AFFINITY_MASK=2"},
		Argv:    []string{"sh", "-c", "echo $ZE_AFFINITY_MASK; pwd"},
		Dir:     workDir,
		LogPath: filepath.Join(logDir, LogName(1, 0)),
	}}

	require.NoError(t, ProcessLauncher{}.Launch(context.Background(), cmds))

	data, err := os.ReadFile(cmds[0].LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2\n")
	assert.Contains(t, string(data), workDir)
}
