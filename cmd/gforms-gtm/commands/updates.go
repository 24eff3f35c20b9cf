package commands

import (
	"fmt"

	"github.com/lvlagency/gforms-gtm/internal/updater"
	"github.com/spf13/cobra"
)

func (a *App) installCheck() {
	var input string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the registry for a newer release",
		Long: `Check the registry for a newer release.

With --input, the host update list is read from the file, or standard input for "-", and printed back
as JSON with the update added when one is available.
Otherwise, the available update is printed, if any, and an unreachable registry is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newPlugin(nil)
			if err != nil {
				return err
			}
			c := p.Checker()

			if input != "" {
				var list updater.UpdateList
				if err := readJSON(cmd, input, &list); err != nil {
					return err
				}
				return writeJSON(cmd, c.CheckForUpdate(cmd.Context(), list))
			}

			u, ok, err := c.Available(cmd.Context())
			if err != nil {
				return fmt.Errorf("could not check %s for updates: %w", c.Slug(), err)
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s is up to date\n", c.Slug(), p.Version())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is available (installed: %s)\npackage: %s\n", c.Slug(), u.NewVersion, p.Version(), u.Package)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "host update list to complete, - for standard input")

	a.cmd.AddCommand(cmd)
}

func (a *App) installInfo() {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the package details published by the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newPlugin(nil)
			if err != nil {
				return err
			}
			c := p.Checker()

			action := updater.ActionPluginInformation
			if c.Type() == updater.Theme {
				action = updater.ActionThemeInformation
			}
			info := c.PackageInfo(cmd.Context(), nil, action, updater.InfoQuery{Slug: c.Slug()})
			if info == nil {
				return fmt.Errorf("no package details available for %s", c.Slug())
			}
			return writeJSON(cmd, info)
		},
	}

	a.cmd.AddCommand(cmd)
}

func (a *App) installPreInstall() {
	cmd := &cobra.Command{
		Use:   "pre-install",
		Short: "Fail if the installed package must not be overwritten by an update",
		Long: `Fail if the installed package must not be overwritten by an update.

An install directory holding a version control checkout is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newPlugin(nil)
			if err != nil {
				return err
			}
			c := p.Checker()

			installArgs := updater.InstallArgs{Plugin: c.Identifier()}
			if c.Type() == updater.Theme {
				installArgs = updater.InstallArgs{Theme: c.Slug()}
			}
			if _, err := c.PreInstall(true, installArgs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s can be updated\n", c.Slug())
			return nil
		},
	}

	a.cmd.AddCommand(cmd)
}
