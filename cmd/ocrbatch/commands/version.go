package commands

import (
	"github.com/spf13/cobra"

	"github.com/spherical/ocrbatch/cmd/ocrbatch/ui"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ocrbatch version",
	Run: func(cmd *cobra.Command, args []string) {
		ui.Message("ocrbatch %s", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
