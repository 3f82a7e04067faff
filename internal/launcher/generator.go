// Package launcher composes and executes per-instance training commands.
//
// The launcher is the heart of unetbench. Given a device kind, an instance
// count and a per-instance resource assignment table, it produces one
// backgroundable command per instance, each scoped to a disjoint set of
// compute resources:
//   - cpu:  numactl memory binding plus an explicit core list
//   - cuda: CUDA_VISIBLE_DEVICES restricted to the assigned device
//   - xpu:  ZE_AFFINITY_MASK set to the instance index
//
// The composed commands are persisted as an executable command file (the
// launch lines followed by a single wait) and executed as independent OS
// processes joined by a wait-all barrier.
package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oobench/unetbench/internal/api"
)

// SingleNodeOverride is the NUMANodesUse value that stops command
// generation after the first instance. The single remaining instance is
// expected to cover the requested parallelism through intra-process
// threading rather than process-level replication.
const SingleNodeOverride = "0"

// TrainParams are the training-program parameters shared by every instance
// of one (model, batch size) combination.
type TrainParams struct {
	// Entrypoint is the program invocation, e.g. ["python", "main.py"].
	Entrypoint []string

	// ConfigPath is the training YAML config selected for the model.
	ConfigPath string

	// BatchSize is the per-instance training batch size.
	BatchSize int

	// NumIter is the number of measured training iterations.
	NumIter int

	// NumWarmup is the number of warmup iterations.
	NumWarmup int

	// ChannelsLast selects NHWC (1) or NCHW (0) memory format.
	ChannelsLast int

	// Precision is the training precision flag value.
	Precision string

	// ExtraArgs are appended verbatim after the fixed flags.
	ExtraArgs []string
}

// Argv renders the training invocation for a device kind.
func (p TrainParams) Argv(device api.DeviceKind) []string {
	argv := append([]string{}, p.Entrypoint...)
	argv = append(argv,
		"--config", p.ConfigPath,
		"--batch_size", strconv.Itoa(p.BatchSize),
		"--device", string(device),
		"--num_iter", strconv.Itoa(p.NumIter),
		"--num_warmup", strconv.Itoa(p.NumWarmup),
		"--channels_last", strconv.Itoa(p.ChannelsLast),
		"--precision", p.Precision,
	)
	return append(argv, p.ExtraArgs...)
}

// Spec describes one (model, batch size) launch: how many instances to
// start, on which device kind, with which resource assignments.
type Spec struct {
	// Device is the target device kind. Kinds outside {cpu, cuda, xpu}
	// yield commands with no affinity prefix; this is not an error.
	Device api.DeviceKind

	// Instances is the number of parallel training processes.
	Instances int

	// Assignments is the ordered per-instance resource descriptor table.
	// Entries beyond the table's length are treated as empty descriptors.
	Assignments []api.Assignment

	// NUMANodesUse, when equal to SingleNodeOverride, stops generation
	// after the first instance regardless of Instances.
	NUMANodesUse string

	// LogDir is the directory per-instance logs are written under.
	LogDir string

	// WorkDir is the working directory instances run in.
	WorkDir string

	// Train carries the shared training parameters.
	Train TrainParams
}

// InstanceCommand is one composed, immutable launch command. It carries
// both the structured form the executor consumes and enough information to
// render the shell form persisted in the command file.
type InstanceCommand struct {
	// Index is the zero-based instance index.
	Index int

	// Device is the device kind the command targets.
	Device api.DeviceKind

	// Assignment is the resource descriptor the command was scoped to.
	Assignment api.Assignment

	// Prefix is the affinity argv prefix (numactl and its arguments for
	// CPU runs; empty otherwise).
	Prefix []string

	// Env lists additional KEY=VALUE environment entries (device
	// visibility variables for accelerator runs).
	Env []string

	// Argv is the training program invocation.
	Argv []string

	// Dir is the working directory.
	Dir string

	// LogPath is the per-instance log file receiving combined
	// stdout/stderr.
	LogPath string
}

// BuildCommands produces one InstanceCommand per instance.
//
// No validation is performed: a malformed assignment produces a command
// whose affinity prefix is malformed in the same way, surfacing as a
// runtime failure of the launched training process. The single-node
// override truncates generation after instance 0.
func (s Spec) BuildCommands() []InstanceCommand {
	var cmds []InstanceCommand
	for i := 0; i < s.Instances; i++ {
		var assignment api.Assignment
		if i < len(s.Assignments) {
			assignment = s.Assignments[i]
		}

		cmd := InstanceCommand{
			Index:      i,
			Device:     s.Device,
			Assignment: assignment,
			Argv:       s.Train.Argv(s.Device),
			Dir:        s.WorkDir,
			LogPath:    filepath.Join(s.LogDir, LogName(assignment.CoreCount(), i)),
		}

		switch s.Device {
		case api.DeviceCPU:
			cmd.Prefix = []string{
				"numactl",
				"-m", assignment.NUMANode(),
				"-C", assignment.CoreList(),
			}
		case api.DeviceCUDA:
			cmd.Env = []string{"CUDA_VISIBLE_DEVICES=" + string(assignment)}
		case api.DeviceXPU:
			cmd.Env = []string{"ZE_AFFINITY_MASK=" + strconv.Itoa(i)}
		}

		cmds = append(cmds, cmd)

		if s.NUMANodesUse == SingleNodeOverride {
			break
		}
	}
	return cmds
}

// LogName builds the per-instance log file name from the core count of the
// instance's assignment and its index. The core count is informational
// only; accelerator runs typically carry a count of one.
func LogName(cores, index int) string {
	return fmt.Sprintf("rcpi%d-ins%d.log", cores, index)
}

// ShellLine renders the command as a single backgrounded shell line with
// combined output redirected to the instance log.
func (c InstanceCommand) ShellLine() string {
	parts := make([]string, 0, len(c.Env)+len(c.Prefix)+len(c.Argv)+3)
	parts = append(parts, c.Env...)
	parts = append(parts, c.Prefix...)
	parts = append(parts, c.Argv...)
	parts = append(parts, ">", c.LogPath, "2>&1", "&")
	return strings.Join(parts, " ")
}

// WriteCommandFile persists the composed commands as an executable shell
// file: one backgrounded launch line per instance followed by a single
// wait, so a caller executing the file does not proceed until every
// launched process has exited.
//
// The file is created fresh (truncated) per combination and is never
// modified after execution.
func WriteCommandFile(path string, cmds []InstanceCommand) error {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	for _, cmd := range cmds {
		b.WriteString(cmd.ShellLine())
		b.WriteByte('\n')
	}
	b.WriteString("wait\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return fmt.Errorf("failed to write command file: %w", err)
	}
	return nil
}
