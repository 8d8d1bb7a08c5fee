package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and the library database",
		Long: "Create the configuration file and the database, seed the class and\n" +
			"house lists from config.yaml, and create the default administrator\n" +
			"(admin / admin) on first run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			config := a.backend.Config()
			out := map[string]string{"data_dir": config.DataDir, "db_file": config.DatabasePath()}
			return a.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "Library initialized in %s\n", config.DataDir)
			})
		},
	}
}
