// Package config - models.go maps benchmark model names to the training
// YAML configuration files consumed by the training program.
package config

import "fmt"

const (
	// ModelUNet2D is the 2D U-Net segmentation model.
	ModelUNet2D = "unet2d"

	// ModelUNet3D is the 3D U-Net segmentation model.
	ModelUNet3D = "unet3d"
)

// defaultModelConfigs maps model names to the training configuration files
// shipped with the training library. The paths are relative to the training
// program's working directory.
var defaultModelConfigs = map[string]string{
	ModelUNet2D: "resources/2DUnet_dsb2018/train_config.yaml",
	ModelUNet3D: "resources/3DUnet_confocal_boundary/train_config.yaml",
}

// TrainingConfig returns the training YAML config path for a model name.
// Entries in ModelConfigs override the built-in table.
//
// Returns an error for model names present in neither, since the training
// program cannot run without a config file.
func (c *Config) TrainingConfig(model string) (string, error) {
	if path, ok := c.ModelConfigs[model]; ok {
		return path, nil
	}
	if path, ok := defaultModelConfigs[model]; ok {
		return path, nil
	}
	return "", fmt.Errorf("unknown model %q: no training config registered", model)
}

// DatasetLink returns the workspace symlink name the training configs of a
// model expect, or the empty string for models without a dataset link.
func DatasetLink(model string) string {
	switch model {
	case ModelUNet2D:
		return "2dunet_datasets"
	case ModelUNet3D:
		return "3dunet_datasets"
	default:
		return ""
	}
}
