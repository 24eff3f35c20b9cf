package commands

import (
	"fmt"

	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/spf13/cobra"
)

func (a *App) installVersion() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the adapter version and the installed package version it checks updates for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\t%s\n", constants.CmdName, constants.Version)
			fmt.Fprintf(out, "%s\t%s\n", a.config.Plugin.Type, a.config.Plugin.Version)
			return nil
		},
	}
	a.cmd.AddCommand(cmd)
}
