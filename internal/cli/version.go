package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/librarian"

// Version is the release version, overridden at build time with -ldflags.
var Version = "v0.1.0"

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the librarian version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "librarian %s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
