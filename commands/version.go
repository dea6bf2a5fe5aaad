package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VERSION is set at build time with -ldflags "-X github.com/leo-automation/leo-ring/commands.VERSION=..."
var VERSION = "v0.0.x"

var VersionCmd = Version{}

// Version displays the application version.
type Version struct {
}

func (c *Version) Command(options *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Displays the current version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", VERSION)
		},
	}
}
