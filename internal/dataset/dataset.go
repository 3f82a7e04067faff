// Package dataset manages the workspace dataset symlinks the training
// configs expect.
//
// The training YAML configs reference datasets through fixed relative names
// (2dunet_datasets, 3dunet_datasets). Rather than copying datasets into
// every workspace, a symlink per model points into a shared read-only
// dataset root. All instances of a sweep share the link target.
package dataset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/oobench/unetbench/internal/config"
	"github.com/oobench/unetbench/internal/logger"
)

// Link ensures the workspace symlink for a model points at the dataset
// root. The operation is idempotent: an existing link to the right target
// is left alone, a stale link is replaced, and anything that is not a
// symlink is reported as an error rather than overwritten.
//
// Models without a registered dataset link are a no-op.
//
// Parameters:
//   - workDir: Workspace directory the training program runs in
//   - datasetRoot: Shared directory holding the downloaded datasets
//   - model: Model name selecting the link
//
// Returns:
//   - Error if the dataset is missing or the link cannot be created
func Link(workDir, datasetRoot, model string) error {
	name := config.DatasetLink(model)
	if name == "" || datasetRoot == "" {
		return nil
	}

	target := filepath.Join(datasetRoot, name)
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("dataset for %s not found at %s: %w", model, target, err)
	}

	linkPath := filepath.Join(workDir, name)
	if existing, err := os.Readlink(linkPath); err == nil {
		if existing == target {
			logger.Debug("dataset link %s already up to date", linkPath)
			return nil
		}
		// Stale link from a previous dataset root.
		if err := os.Remove(linkPath); err != nil {
			return fmt.Errorf("failed to remove stale dataset link: %w", err)
		}
	} else if info, statErr := os.Lstat(linkPath); statErr == nil && info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%s exists and is not a symlink", linkPath)
	}

	if err := os.Symlink(target, linkPath); err != nil {
		return fmt.Errorf("failed to link dataset for %s: %w", model, err)
	}

	logger.Info("dataset linked: %s -> %s (%s)", linkPath, target, sizeOf(target))
	return nil
}

// sizeOf reports the humanized on-disk size of a dataset tree. Failures
// during the walk degrade to reporting what was counted so far.
func sizeOf(dir string) string {
	var total uint64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return humanize.IBytes(total)
}
