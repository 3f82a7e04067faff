package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the unetbench version, overridable at build time via
// -ldflags "-X github.com/oobench/unetbench/cmd/unetbench/app.Version=...".
var Version = "dev"

// NewVersionCommand creates the version command
func NewVersionCommand(globalOpts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s %s/%s\n", cliName, Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
