// Package bench orchestrates benchmark sweeps and collects their results.
//
// A sweep is the cross-product of model names and batch sizes from the
// sweep configuration. For each combination the package builds the
// per-instance resource assignments, generates and persists the launch
// command file, and executes the instances through a launcher backend.
// Combinations run strictly sequentially: the wait-all barrier of one
// combination completes before the next begins.
package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/oobench/unetbench/internal/config"
	"github.com/oobench/unetbench/internal/dataset"
	"github.com/oobench/unetbench/internal/device"
	"github.com/oobench/unetbench/internal/launcher"
	"github.com/oobench/unetbench/internal/logger"
)

// CommandFileName is the name of the per-combination command file artifact.
const CommandFileName = "launch.sh"

// Sweep runs the full model × batch-size cross-product of a configuration.
type Sweep struct {
	cfg      *config.Config
	launcher launcher.Launcher

	// RunID names this sweep run; it is part of every combination's log
	// directory so repeated runs never collide.
	RunID string
}

// NewSweep builds a sweep from a validated configuration, selecting the
// process or container launcher backend.
func NewSweep(cfg *config.Config) (*Sweep, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sweep configuration: %w", err)
	}

	return &Sweep{
		cfg:   cfg,
		RunID: uuid.NewString()[:8],
	}, nil
}

// Run executes every (model, batch size) combination in order.
//
// The first failing combination aborts the sweep; within a combination all
// instances run to completion before the failure is reported. Command files
// are persisted whether or not execution succeeds.
//
// The launcher backend is built here rather than in NewSweep so that
// planning a containerized sweep does not require a reachable Docker
// daemon.
func (s *Sweep) Run(ctx context.Context) error {
	s.launcher = launcher.ProcessLauncher{}
	if s.cfg.Container.Enabled {
		backend, err := launcher.NewDockerLauncher(s.cfg.Container.Image, s.cfg.Container.Binds, s.RunID)
		if err != nil {
			return err
		}
		s.launcher = backend
	}
	return s.forEachCombination(ctx, true)
}

// Plan generates and persists the command files for every combination
// without executing anything. It is the dry-run counterpart of Run.
func (s *Sweep) Plan(ctx context.Context) error {
	return s.forEachCombination(ctx, false)
}

// forEachCombination walks the sweep cross-product, generating (and
// optionally executing) one command file per combination.
func (s *Sweep) forEachCombination(ctx context.Context, execute bool) error {
	logger.Info("sweep %s: models=%v batch_sizes=%v device=%s instances=%d",
		s.RunID, s.cfg.Models, s.cfg.BatchSizes, s.cfg.Device, s.cfg.Instances)

	for _, model := range s.cfg.Models {
		trainConfig, err := s.cfg.TrainingConfig(model)
		if err != nil {
			return err
		}

		if execute {
			if err := dataset.Link(s.cfg.WorkDir, s.cfg.DatasetDir, model); err != nil {
				return err
			}
		}

		for _, batchSize := range s.cfg.BatchSizes {
			if err := ctx.Err(); err != nil {
				return err
			}

			assignments, err := device.Assignments(s.cfg.Device, device.Options{
				Instances:        s.cfg.Instances,
				CoresPerInstance: s.cfg.CoresPerInstance,
				NUMANodesUse:     s.cfg.NUMANodesUse,
			})
			if err != nil {
				return fmt.Errorf("%s bs=%d: %w", model, batchSize, err)
			}

			logDir := filepath.Join(s.cfg.LogDir, CombinationDir(model, batchSize, s.RunID))
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}

			spec := launcher.Spec{
				Device:       s.cfg.Device,
				Instances:    s.cfg.Instances,
				Assignments:  assignments,
				NUMANodesUse: s.cfg.NUMANodesUse,
				LogDir:       logDir,
				WorkDir:      s.cfg.WorkDir,
				Train: launcher.TrainParams{
					Entrypoint:   s.cfg.Entrypoint,
					ConfigPath:   trainConfig,
					BatchSize:    batchSize,
					NumIter:      s.cfg.NumIter,
					NumWarmup:    s.cfg.NumWarmup,
					ChannelsLast: *s.cfg.ChannelsLast,
					Precision:    s.cfg.Precision,
					ExtraArgs:    s.cfg.ExtraArgs,
				},
			}

			cmds := spec.BuildCommands()
			cmdFile := filepath.Join(logDir, CommandFileName)
			if err := launcher.WriteCommandFile(cmdFile, cmds); err != nil {
				return fmt.Errorf("%s bs=%d: %w", model, batchSize, err)
			}
			logger.Info("%s bs=%d: %d instance(s), command file %s",
				model, batchSize, len(cmds), cmdFile)

			if !execute {
				continue
			}
			if err := s.launcher.Launch(ctx, cmds); err != nil {
				return fmt.Errorf("%s bs=%d: %w", model, batchSize, err)
			}
		}
	}
	return nil
}

// CombinationDir names the log directory of one (model, batch size)
// combination within a run.
func CombinationDir(model string, batchSize int, runID string) string {
	return fmt.Sprintf("%s-bs%d-%s", model, batchSize, runID)
}
