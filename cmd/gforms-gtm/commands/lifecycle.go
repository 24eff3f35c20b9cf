package commands

import (
	"github.com/lvlagency/gforms-gtm/internal/updater"
	"github.com/spf13/cobra"
)

func (a *App) installLifecycle() {
	for _, l := range []struct {
		action string
		short  string
	}{
		{action: updater.ActionActivate, short: "Report the package activation to the registry"},
		{action: updater.ActionDeactivate, short: "Report the package deactivation to the registry"},
	} {
		cmd := &cobra.Command{
			Use:   l.action,
			Short: l.short,
			Long:  l.short + ".\n\nReporting is best effort: registry failures are logged, never returned.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := a.newPlugin(nil)
				if err != nil {
					return err
				}
				p.Checker().ReportLifecycleEvent(cmd.Context(), l.action)
				return nil
			},
		}
		a.cmd.AddCommand(cmd)
	}
}
