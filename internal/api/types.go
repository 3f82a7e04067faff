// Package api defines the shared types used across the unetbench application.
//
// This package contains the data structures that flow between the CLI layer,
// the device discovery layer, and the launcher:
//   - Device kind definitions
//   - Per-instance resource assignments
//   - Benchmark result records
//
// All types are designed to be serialization-friendly so sweep plans and
// results can be persisted as artifacts next to the logs they describe.
package api

import "strings"

// DeviceKind identifies the compute device a benchmark sweep targets.
//
// The kind selects both the affinity mechanism used to isolate instances
// (NUMA/core pinning for CPU, device-visibility environment variables for
// accelerators) and the --device argument forwarded to the training program.
type DeviceKind string

const (
	// DeviceCPU runs training on CPU cores, pinned per instance via
	// numactl core lists and NUMA memory binding.
	DeviceCPU DeviceKind = "cpu"

	// DeviceCUDA runs training on NVIDIA GPUs, scoped per instance via
	// CUDA_VISIBLE_DEVICES.
	DeviceCUDA DeviceKind = "cuda"

	// DeviceXPU runs training on Intel XPU accelerators, scoped per
	// instance via ZE_AFFINITY_MASK using the instance index as the mask.
	DeviceXPU DeviceKind = "xpu"
)

// Assignment is the per-instance resource descriptor.
//
// Its interpretation depends on the device kind:
//   - cpu:  "<core_list>;<numa_node>" where core_list is comma-separated
//     (e.g. "0,1,2,3;0")
//   - cuda: a device index or comma-separated index list (e.g. "0" or "0,1")
//   - xpu:  unused; the instance index itself is the affinity mask
//
// Assignments are produced by the device discovery layer and are read-only
// to the launcher. No validation is performed on their contents: a malformed
// assignment surfaces as a runtime failure of the launched training process.
type Assignment string

// CoreList returns the core-list field (everything before the first
// semicolon). For non-CPU assignments this is the whole descriptor.
func (a Assignment) CoreList() string {
	s := string(a)
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return s[:i]
	}
	return s
}

// NUMANode returns the NUMA node field (everything after the first
// semicolon), or the empty string when the descriptor carries none.
func (a Assignment) NUMANode() string {
	s := string(a)
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// CoreCount returns the number of comma-separated entries in the core-list
// field. It is used only to name per-instance log files, never for pinning.
func (a Assignment) CoreCount() int {
	list := a.CoreList()
	if list == "" {
		return 0
	}
	return strings.Count(list, ",") + 1
}

// Result is one collected benchmark measurement for a single instance of
// one (model, batch size) combination.
type Result struct {
	// Model is the model name the instance trained (e.g. "unet3d").
	Model string `json:"model"`

	// BatchSize is the per-instance training batch size.
	BatchSize int `json:"batch_size"`

	// Instance is the zero-based instance index within the combination.
	Instance int `json:"instance"`

	// Cores is the number of cores the instance was pinned to
	// (zero for accelerator runs).
	Cores int `json:"cores"`

	// Throughput is the reported training throughput in frames per second.
	Throughput float64 `json:"throughput"`

	// LatencyMS is the reported per-iteration training latency in
	// milliseconds.
	LatencyMS float64 `json:"latency_ms"`

	// LogPath is the instance log the measurement was parsed from.
	LogPath string `json:"log_path"`
}
