package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/lvlagency/gforms-gtm/internal/config"
	"github.com/spf13/cobra"
)

func (a *App) installSettings() {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the confirmation presentation settings",
		Long: `Manage the confirmation presentation settings.

Settings are stored in a TOML file picked up by a running bridge without restart.
Known settings: ` + fmt.Sprint(config.Keys),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "get KEY",
		Short:     "Print the effective value of a setting",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := a.settings()
			if err != nil {
				return err
			}
			v, err := cm.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "set KEY VALUE",
		Short:     "Store a setting",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.New(a.config.Plugin.SettingsFile).Set(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the effective value of every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := a.settings()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, k := range config.Keys {
				v, err := cm.Get(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", k, v)
			}
			return w.Flush()
		},
	})

	a.cmd.AddCommand(cmd)
}
