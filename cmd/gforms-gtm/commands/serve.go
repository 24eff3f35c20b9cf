package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lvlagency/gforms-gtm/internal/webservice"
	"github.com/spf13/cobra"
)

func (a *App) installServe() {
	defaultConf := defaultStaticConfig()
	a.config.Daemon = defaultConf

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the host extension points over HTTP",
		Long: `Serve the host extension points over HTTP.

Each hook the host registers calls one JSON endpoint, listed by GET /hooks.
The settings file is watched and reloaded on change. Metrics are exposed on a separate listener.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve()
		},
	}

	cmd.Flags().DurationVar(&a.config.Daemon.ReadTimeout, "read-timeout", defaultConf.ReadTimeout, "read timeout for HTTP server")
	cmd.Flags().DurationVar(&a.config.Daemon.WriteTimeout, "write-timeout", defaultConf.WriteTimeout, "write timeout for HTTP server")
	cmd.Flags().DurationVar(&a.config.Daemon.RequestTimeout, "request-timeout", defaultConf.RequestTimeout, "request timeout for HTTP server")
	cmd.Flags().IntVar(&a.config.Daemon.MaxHeaderBytes, "max-header-bytes", defaultConf.MaxHeaderBytes, "maximum header bytes for HTTP server")
	cmd.Flags().Int64Var(&a.config.Daemon.MaxRequestBytes, "max-request-bytes", defaultConf.MaxRequestBytes, "maximum request body bytes for HTTP server")

	cmd.Flags().StringVar(&a.config.Daemon.ListenHost, "listen-host", defaultConf.ListenHost, "host to listen on")
	cmd.Flags().IntVar(&a.config.Daemon.ListenPort, "listen-port", defaultConf.ListenPort, "port to listen on")

	cmd.Flags().StringVar(&a.config.Daemon.MetricsHost, "metrics-host", defaultConf.MetricsHost, "host for the metrics endpoint")
	cmd.Flags().IntVar(&a.config.Daemon.MetricsPort, "metrics-port", defaultConf.MetricsPort, "port for the metrics endpoint")

	a.cmd.AddCommand(cmd)
}

func (a *App) serve() (err error) {
	defer func() {
		if err != nil {
			a.markReady()
		}
	}()

	a.config.Plugin.SettingsFile, err = filepath.Abs(a.config.Plugin.SettingsFile)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for settings file: %v", err)
	}

	cm, err := a.settings()
	if err != nil {
		return err
	}
	p, err := a.newPlugin(cm)
	if err != nil {
		return err
	}

	d, err := webservice.New(context.Background(), p, cm, a.config.Daemon, webservice.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to create server: %v", err)
	}

	a.mu.Lock()
	a.daemon = d
	quitting := a.quitting
	a.mu.Unlock()
	a.markReady()

	if quitting {
		return nil
	}
	return d.Run()
}

// markReady signals WaitReady callers, once.
func (a *App) markReady() {
	a.readyOnce.Do(func() { close(a.ready) })
}
