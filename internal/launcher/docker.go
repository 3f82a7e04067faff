package launcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"golang.org/x/sync/errgroup"

	"github.com/oobench/unetbench/internal/api"
	"github.com/oobench/unetbench/internal/logger"
)

// Container label keys used to identify benchmark containers, so stale
// containers from interrupted sweeps can be found and removed.
const (
	labelManaged  = "unetbench.managed"
	labelRunID    = "unetbench.run"
	labelInstance = "unetbench.instance"
)

// DockerLauncher runs each instance in its own Docker container instead of
// a host process.
//
// CPU affinity maps onto the container cpuset controls (CpusetCpus and
// CpusetMems mirror the numactl core list and memory binding of the process
// launcher); CUDA device scoping maps onto a device request for the
// assigned device IDs. XPU masks travel through the environment as in the
// process launcher.
type DockerLauncher struct {
	client *client.Client
	image  string
	binds  []string
	runID  string
}

// NewDockerLauncher creates a Docker-backed launcher.
//
// The Docker client is configured from the environment (DOCKER_HOST and
// friends) with API version negotiation, and daemon connectivity is
// verified up front so a missing daemon fails the sweep before any
// combination starts.
//
// Parameters:
//   - image: Container image carrying the training program
//   - binds: host:container mounts for datasets and configs
//   - runID: Sweep run identifier stamped into container labels
//
// Returns:
//   - Configured launcher
//   - Error if the Docker daemon is unreachable
func NewDockerLauncher(image string, binds []string, runID string) (*DockerLauncher, error) {
	if image == "" {
		return nil, fmt.Errorf("container image is required")
	}

	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("Docker daemon is not accessible: %w", err)
	}

	return &DockerLauncher{
		client: cli,
		image:  image,
		binds:  binds,
		runID:  runID,
	}, nil
}

// Launch starts one container per command and joins them with a wait-all
// barrier, mirroring ProcessLauncher semantics: a failing container does
// not cancel its siblings.
func (d *DockerLauncher) Launch(ctx context.Context, cmds []InstanceCommand) error {
	var g errgroup.Group
	for _, cmd := range cmds {
		g.Go(func() error {
			return d.runContainer(ctx, cmd)
		})
	}
	return g.Wait()
}

// runContainer creates, starts and waits for a single instance container,
// then copies its combined output to the instance log and removes it.
func (d *DockerLauncher) runContainer(ctx context.Context, cmd InstanceCommand) error {
	name := fmt.Sprintf("unetbench-%s-ins%d", d.runID, cmd.Index)

	cfg := &container.Config{
		Image:      d.image,
		Cmd:        cmd.Argv,
		Env:        cmd.Env,
		WorkingDir: cmd.Dir,
		Labels: map[string]string{
			labelManaged:  "true",
			labelRunID:    d.runID,
			labelInstance: strconv.Itoa(cmd.Index),
		},
	}

	host := &container.HostConfig{Binds: d.binds}
	switch cmd.Device {
	case api.DeviceCPU:
		host.Resources.CpusetCpus = cmd.Assignment.CoreList()
		host.Resources.CpusetMems = cmd.Assignment.NUMANode()
	case api.DeviceCUDA:
		host.Resources.DeviceRequests = []container.DeviceRequest{{
			Driver:       "nvidia",
			DeviceIDs:    strings.Split(string(cmd.Assignment), ","),
			Capabilities: [][]string{{"gpu"}},
		}}
	}

	created, err := d.client.ContainerCreate(ctx, cfg, host, nil, nil, name)
	if err != nil {
		return fmt.Errorf("instance %d: failed to create container: %w", cmd.Index, err)
	}
	defer func() {
		// Best effort: keep the daemon clean even when the wait failed.
		rmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := d.client.ContainerRemove(rmCtx, created.ID, container.RemoveOptions{Force: true}); err != nil {
			logger.Warn("instance %d: failed to remove container %s: %v", cmd.Index, name, err)
		}
	}()

	if err := d.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("instance %d: failed to start container: %w", cmd.Index, err)
	}
	logger.Info("instance %d: container %s started", cmd.Index, name)

	statusCh, errCh := d.client.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	var exitCode int64
	select {
	case err := <-errCh:
		return fmt.Errorf("instance %d: wait failed: %w", cmd.Index, err)
	case status := <-statusCh:
		exitCode = status.StatusCode
	}

	if err := d.copyLogs(ctx, created.ID, cmd.LogPath); err != nil {
		logger.Warn("instance %d: failed to collect container logs: %v", cmd.Index, err)
	}

	if exitCode != 0 {
		return fmt.Errorf("instance %d failed with exit code %d (log: %s)",
			cmd.Index, exitCode, cmd.LogPath)
	}
	logger.Debug("instance %d completed", cmd.Index)
	return nil
}

// copyLogs streams the container's combined stdout/stderr into the
// per-instance log file.
func (d *DockerLauncher) copyLogs(ctx context.Context, containerID, logPath string) error {
	reader, err := d.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return fmt.Errorf("failed to read container logs: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create instance log: %w", err)
	}
	defer logFile.Close()

	// Docker multiplexes stdout/stderr on one stream; demux both into the
	// same file to match the "2>&1" redirection of the process launcher.
	if _, err := stdcopy.StdCopy(logFile, logFile, reader); err != nil {
		return fmt.Errorf("failed to demux container logs: %w", err)
	}
	return nil
}
