package device

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// nvidiaGPUPath lists one directory per NVIDIA GPU when the driver is
// loaded. This mirrors the sysfs-based detection used for CPU topology and
// avoids shelling out to nvidia-smi.
const nvidiaGPUPath = "/proc/driver/nvidia/gpus"

// CUDADevices returns the visible CUDA device index strings.
//
// CUDA_VISIBLE_DEVICES, when set, is authoritative and returned verbatim
// (split on commas). Otherwise the NVIDIA proc tree is counted and indices
// 0..n-1 are returned.
//
// Returns:
//   - Device index strings, one per visible GPU
//   - Error if no GPU can be found by either method
func CUDADevices() ([]string, error) {
	if env := os.Getenv("CUDA_VISIBLE_DEVICES"); env != "" {
		var devices []string
		for _, d := range strings.Split(env, ",") {
			if d = strings.TrimSpace(d); d != "" {
				devices = append(devices, d)
			}
		}
		if len(devices) > 0 {
			return devices, nil
		}
	}

	entries, err := os.ReadDir(nvidiaGPUPath)
	if err != nil {
		return nil, fmt.Errorf("no CUDA devices found: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			count++
		}
	}
	if count == 0 {
		return nil, fmt.Errorf("no CUDA devices found under %s", nvidiaGPUPath)
	}

	devices := make([]string, count)
	for i := range devices {
		devices[i] = strconv.Itoa(i)
	}
	return devices, nil
}
