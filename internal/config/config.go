// Package config provides configuration management for unetbench.
//
// This package handles all sweep configuration:
//   - Training program invocation (entry point, iteration counts, precision)
//   - Sweep dimensions (model names, batch sizes, device kind, instances)
//   - Filesystem layout (dataset root, workspace, log directory)
//   - Optional containerized launch settings
//
// Configuration is loaded from a YAML file and then overridden by CLI flags,
// so a sweep definition can be checked in next to the benchmark results it
// produced.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oobench/unetbench/internal/api"
)

const (
	// DefaultNumIter is the default number of measured training iterations.
	DefaultNumIter = 200

	// DefaultNumWarmup is the default number of warmup iterations excluded
	// from measurement.
	DefaultNumWarmup = 20

	// DefaultPrecision is the default training precision flag.
	DefaultPrecision = "float32"

	// DefaultChannelsLast selects NHWC memory format by default, matching
	// the training program's own default.
	DefaultChannelsLast = 1

	// DefaultInstances is the default number of parallel training
	// processes per (model, batch size) combination.
	DefaultInstances = 1

	// DefaultLogDirName is the directory benchmark logs and command files
	// are written under when no log directory is configured.
	DefaultLogDirName = "unetbench-logs"
)

// Config represents a complete sweep configuration.
//
// Zero values are filled in by applyDefaults, so a minimal YAML file only
// needs to name the models and batch sizes to sweep.
type Config struct {
	// Entrypoint is the training program invocation the launcher prefixes
	// with affinity settings. Example: ["python", "main.py"].
	Entrypoint []string `yaml:"entrypoint"`

	// Models lists the model names to sweep (e.g. "unet2d", "unet3d").
	// Each model maps to a training YAML config via ModelConfigs.
	Models []string `yaml:"models"`

	// BatchSizes lists the per-instance batch sizes to sweep.
	BatchSizes []int `yaml:"batch_sizes"`

	// Device is the target device kind: cpu, cuda or xpu.
	Device api.DeviceKind `yaml:"device"`

	// Instances is the number of parallel training processes launched per
	// (model, batch size) combination.
	Instances int `yaml:"instances"`

	// NUMANodesUse restricts CPU discovery to specific NUMA nodes.
	// The literal "0" additionally stops command generation after the
	// first instance, delegating parallelism to intra-process threading.
	// Empty means all nodes.
	NUMANodesUse string `yaml:"numa_nodes_use"`

	// CoresPerInstance fixes the number of cores per CPU instance.
	// Zero means divide the available cores evenly across instances.
	CoresPerInstance int `yaml:"cores_per_instance"`

	// NumIter is the number of measured training iterations.
	NumIter int `yaml:"num_iter"`

	// NumWarmup is the number of warmup iterations.
	NumWarmup int `yaml:"num_warmup"`

	// Precision is forwarded to the training program's --precision flag
	// (e.g. "float32", "bfloat16", "float16").
	Precision string `yaml:"precision"`

	// ChannelsLast selects NHWC (1) or NCHW (0) memory format.
	// A pointer so an explicit 0 is distinguishable from "unset".
	ChannelsLast *int `yaml:"channels_last"`

	// ExtraArgs are appended verbatim to every training invocation.
	ExtraArgs []string `yaml:"extra_args"`

	// DatasetDir is the root directory holding the downloaded datasets.
	// Per-model symlinks into the workspace are created from it.
	DatasetDir string `yaml:"dataset_dir"`

	// WorkDir is the directory the training program runs in and dataset
	// symlinks are created under. Empty means the current directory.
	WorkDir string `yaml:"work_dir"`

	// LogDir is where per-instance logs and command files are written.
	LogDir string `yaml:"log_dir"`

	// ModelConfigs maps model names to training YAML config paths,
	// overriding the built-in table.
	ModelConfigs map[string]string `yaml:"model_configs"`

	// Container configures the optional containerized launch mode.
	Container ContainerConfig `yaml:"container"`
}

// ContainerConfig configures launching instances in Docker containers
// instead of host processes.
type ContainerConfig struct {
	// Enabled switches the launcher to the Docker backend.
	Enabled bool `yaml:"enabled"`

	// Image is the container image carrying the training program and its
	// dependencies. Required when Enabled is true.
	Image string `yaml:"image"`

	// Binds lists host:container mount specs for the dataset and config
	// directories.
	Binds []string `yaml:"binds"`
}

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a sweep configuration from a YAML file and applies defaults
// for any field left unset.
//
// Parameters:
//   - path: Path to the YAML sweep configuration
//
// Returns:
//   - Parsed configuration with defaults applied
//   - Error if the file cannot be read or parsed
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills in zero-valued fields with built-in defaults.
func (c *Config) applyDefaults() {
	if len(c.Entrypoint) == 0 {
		c.Entrypoint = []string{"python", "main.py"}
	}
	if len(c.Models) == 0 {
		c.Models = []string{ModelUNet3D}
	}
	if len(c.BatchSizes) == 0 {
		c.BatchSizes = []int{1}
	}
	if c.Device == "" {
		c.Device = api.DeviceCPU
	}
	if c.Instances == 0 {
		c.Instances = DefaultInstances
	}
	if c.NumIter == 0 {
		c.NumIter = DefaultNumIter
	}
	if c.NumWarmup == 0 {
		c.NumWarmup = DefaultNumWarmup
	}
	if c.Precision == "" {
		c.Precision = DefaultPrecision
	}
	if c.ChannelsLast == nil {
		channelsLast := DefaultChannelsLast
		c.ChannelsLast = &channelsLast
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDirName
	}
}

// Validate checks the configuration for contradictions the sweep layer
// cannot recover from. The command generator itself performs no validation;
// this is the single place where malformed sweeps are rejected early.
func (c *Config) Validate() error {
	if c.Instances < 1 {
		return fmt.Errorf("instances must be positive, got %d", c.Instances)
	}
	if c.ChannelsLast == nil {
		return fmt.Errorf("channels_last is unset; build configs via Default or Load")
	}
	for _, bs := range c.BatchSizes {
		if bs < 1 {
			return fmt.Errorf("batch sizes must be positive, got %d", bs)
		}
	}
	for _, model := range c.Models {
		if _, err := c.TrainingConfig(model); err != nil {
			return err
		}
	}
	if c.Container.Enabled && c.Container.Image == "" {
		return fmt.Errorf("container mode requires an image")
	}
	return nil
}
