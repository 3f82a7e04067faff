package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/oobench/unetbench/internal/logger"
)

// Launcher executes a batch of composed instance commands and blocks until
// every instance has exited.
type Launcher interface {
	// Launch starts all commands concurrently and waits for all of them.
	// The returned error is the first instance failure observed; the
	// remaining instances still run to completion before Launch returns.
	Launch(ctx context.Context, cmds []InstanceCommand) error
}

// ProcessLauncher runs each instance as an independent host process.
//
// Instances share nothing but the read-only dataset directory; their
// core/device partitions are disjoint by construction of the assignment
// table, not enforced at runtime.
type ProcessLauncher struct{}

// Launch starts one OS process per command and joins them with a wait-all
// barrier. A failing instance does not cancel its siblings: all instances
// of a combination run to completion, matching the trailing-wait semantics
// of the persisted command file.
func (ProcessLauncher) Launch(ctx context.Context, cmds []InstanceCommand) error {
	var g errgroup.Group
	for _, cmd := range cmds {
		g.Go(func() error {
			return runInstance(ctx, cmd)
		})
	}
	return g.Wait()
}

// runInstance executes a single composed command, streaming combined
// stdout/stderr to the instance log.
func runInstance(ctx context.Context, cmd InstanceCommand) error {
	if err := os.MkdirAll(filepath.Dir(cmd.LogPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.Create(cmd.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create instance log: %w", err)
	}
	defer logFile.Close()

	argv := append(append([]string{}, cmd.Prefix...), cmd.Argv...)
	proc := exec.CommandContext(ctx, argv[0], argv[1:]...)
	proc.Dir = cmd.Dir
	proc.Env = append(os.Environ(), cmd.Env...)
	proc.Stdout = logFile
	proc.Stderr = logFile

	logger.Info("instance %d: %s", cmd.Index, cmd.ShellLine())
	if err := proc.Run(); err != nil {
		return fmt.Errorf("instance %d failed (log: %s): %w", cmd.Index, cmd.LogPath, err)
	}
	logger.Debug("instance %d completed", cmd.Index)
	return nil
}
