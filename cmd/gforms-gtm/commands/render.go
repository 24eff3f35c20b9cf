package commands

import (
	"fmt"

	"github.com/lvlagency/gforms-gtm/internal/confirmation"
	"github.com/lvlagency/gforms-gtm/internal/webservice/handlers"
	"github.com/spf13/cobra"
)

func (a *App) installRender() {
	var input string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a form confirmation",
		Long: `Render a form confirmation.

The gform_confirmation call, as sent to the bridge, is read from the file or standard input for "-".
The markup the host should print is written on the standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req handlers.ConfirmationRequest
			if err := readJSON(cmd, input, &req); err != nil {
				return err
			}
			if req.Site.ID == 0 {
				req.Site.ID = 1
			}

			cm, err := a.settings()
			if err != nil {
				return err
			}

			html, err := confirmation.New(cm).Render(req.Site, req.Confirmation, req.Form, req.Entry, req.Ajax)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), html)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "confirmation call to render, - for standard input")

	err := cmd.MarkFlagFilename("input")
	if err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark input flag as filename: %v", err))
	}

	a.cmd.AddCommand(cmd)
}
