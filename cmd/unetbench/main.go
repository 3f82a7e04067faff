// Command unetbench drives U-Net training benchmark sweeps across CPU,
// CUDA and XPU devices.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/oobench/unetbench/cmd/unetbench/app"
	"github.com/oobench/unetbench/internal/logger"
)

func main() {
	atexit.Register(logger.Sync)

	cmd := app.NewUnetbenchCommand()
	if err := cmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
